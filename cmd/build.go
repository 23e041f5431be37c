package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/application/build"
	"scriptdex/internal/version"
)

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Run every build step",
		Long: `Extract the whole corpus once, link it, and write every artifact in build order.
Steps whose artifacts were built from the same corpus hash are skipped unless --force
is given. Quality failures are reported but do not fail the build; run the quality
command to gate on them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.runSteps(cmd, build.AllSteps(), build.RunOptions{Force: a.cfg.Build.Force})
			return err
		},
	}
}

// newStepCmd builds a command named after the one step it runs.
func newStepCmd(a *app, id build.StepID, short string) *cobra.Command {
	return stepCmd(a, string(id), id, short)
}

func stepCmd(a *app, use string, id build.StepID, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.runSteps(cmd, []build.StepID{id}, build.RunOptions{Force: a.cfg.Build.Force})
			return err
		},
	}
}

func newResindexCmd(a *app) *cobra.Command {
	return newStepCmd(a, build.StepResourceIndex, "Classify scripts and summarize prefabs and inventory icons")
}

func newCatalogCmd(a *app) *cobra.Command {
	return newStepCmd(a, build.StepCatalog, "Build the linked item catalog")
}

func newCatalogSQLiteCmd(a *app) *cobra.Command {
	return newStepCmd(a, build.StepCatalogSQLite, "Mirror the catalog into SQLite")
}

func newCatindexCmd(a *app) *cobra.Command {
	return newStepCmd(a, build.StepCatalogIndex, "Build the compact search index")
}

func newI18nCmd(a *app) *cobra.Command {
	return newStepCmd(a, build.StepI18n, "Build the localized name index")
}

func newIconsCmd(a *app) *cobra.Command {
	return newStepCmd(a, build.StepIcons, "Index inventory icons from the atlas files")
}

func newFarmingDefsCmd(a *app) *cobra.Command {
	return newStepCmd(a, build.StepFarming, "Export farm plant, weed and fertilizer definitions")
}

func newIndexManifestCmd(a *app) *cobra.Command {
	return newStepCmd(a, build.StepManifest, "List every artifact with its size, hash and meta")
}

// runSteps runs the pipeline and prints the step summary and collected timings. A failed
// step comes back as *build.StepError, which prints as "<step> <path>: <cause>".
func (a *app) runSteps(cmd *cobra.Command, ids []build.StepID, opts build.RunOptions) (*build.Report, error) {
	ctx := cmd.Context()
	metrics, err := build.NewManualMetrics(version.GetVersion().Version)
	if err != nil {
		return nil, err
	}
	bc, err := build.NewContext(ctx, a.cfg, build.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	report, runErr := build.Run(ctx, bc, ids, opts)
	out := cmd.OutOrStdout()
	if report != nil {
		printReport(out, report)
	}
	if collected, err := metrics.Collect(ctx); err == nil {
		printTimings(out, collected)
	}
	if runErr != nil {
		return report, runErr
	}
	if report.Quality != nil && report.Quality.HasFail() {
		_, _ = fmt.Fprintf(out, "warning: quality gate found %d fail-level issues\n", report.Quality.Summary.IssuesFail)
	}
	return report, nil
}

func printReport(w io.Writer, report *build.Report) {
	_, _ = fmt.Fprintf(w, "build %s\n", report.BuildID)
	for _, s := range report.Steps {
		status := "wrote"
		if s.Skipped {
			status = "up to date"
		}
		_, _ = fmt.Fprintf(w, "  %-16s %-10s %s%s\n", s.ID, status, strings.Join(s.Artifacts, ", "), formatCounts(s.Counts))
	}
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return " (" + strings.Join(parts, " ") + ")"
}

func printTimings(w io.Writer, c *build.Collected) {
	if len(c.Steps) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "timings:")
	for _, st := range c.Steps {
		_, _ = fmt.Fprintf(w, "  %-16s %.3fs\n", st.Step, st.Seconds)
	}
	for _, kind := range sortedKeys(c.Unresolved) {
		if n := c.Unresolved[kind]; n > 0 {
			_, _ = fmt.Fprintf(w, "  unresolved %-10s %d\n", kind, n)
		}
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// qualityPath is where the quality step writes its report.
func (a *app) qualityPath() string {
	return artifact.NewStore(a.cfg.Paths.IndexPath()).Path(artifact.QualityName)
}
