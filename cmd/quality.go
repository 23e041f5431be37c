package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/application/build"
)

func newQualityCmd(a *app) *cobra.Command {
	th := artifact.DefaultQualityThresholds()
	cmd := &cobra.Command{
		Use:   string(build.StepQuality),
		Short: "Check the artifacts and fail on fail-level issues",
		Long: `Run the quality gate over the catalog, index, icon, i18n and trace artifacts and
write the quality report. Exits 1 when any fail-level issue is found. Unknown ids in
the icon and i18n indexes are reported with their nearest catalog ids.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.runSteps(cmd, []build.StepID{build.StepQuality}, build.RunOptions{Force: true, Thresholds: &th})
			if err != nil {
				return err
			}
			q := report.Quality
			if q == nil {
				return nil
			}
			for _, issue := range q.Issues {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s: %s\n", issue.Level, issue.Check, issue.Message)
			}
			if q.HasFail() {
				return fmt.Errorf("%s %s: %d fail-level issues", build.StepQuality, a.qualityPath(), q.Summary.IssuesFail)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&th.MinItems, "min-items", th.MinItems, "Minimum catalog items")
	cmd.Flags().IntVar(&th.MinIcons, "min-icons", th.MinIcons, "Minimum indexed icons")
	cmd.Flags().Float64Var(&th.MinI18nRatio, "min-i18n-ratio", th.MinI18nRatio, "Minimum share of items with a preferred-language name")
	return cmd
}
