package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/application/build"
)

func newMechanismIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(build.StepMechanism),
		Short: "Build, validate or diff the component and prefab mechanism index",
	}
	cmd.AddCommand(
		stepCmd(a, "build", build.StepMechanism, "Build the mechanism index and its SQLite mirror"),
		newMechanismValidateCmd(a),
		newMechanismDiffCmd(),
	)
	return cmd
}

func newMechanismValidateCmd(a *app) *cobra.Command {
	var (
		file   string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check required keys, counts and edges of a mechanism index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := file
			if path == "" {
				path = artifact.NewStore(a.cfg.Paths.IndexPath()).Path(artifact.MechanismIndexName)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("%s validate %s: %w", build.StepMechanism, path, err)
			}
			res := artifact.ValidateMechanismIndex(data)
			if err := writeIndented(cmd, res); err != nil {
				return err
			}
			if !res.OK(strict) {
				return fmt.Errorf("%s validate %s: %d errors, %d warnings", build.StepMechanism, path, len(res.Errors), len(res.Warnings))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Mechanism index to check (default: the one under the index dir)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	return cmd
}

func newMechanismDiffCmd() *cobra.Command {
	var failOnChange bool
	cmd := &cobra.Command{
		Use:   "diff <baseline> <target>",
		Short: "Report added, removed and changed components and prefabs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([][]byte, 2)
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("%s diff %s: %w", build.StepMechanism, path, err)
				}
				docs[i] = data
			}
			diff, err := artifact.DiffMechanismIndex(docs[0], docs[1])
			if err != nil {
				return fmt.Errorf("%s diff %s: %w", build.StepMechanism, args[1], err)
			}
			if err := writeIndented(cmd, diff); err != nil {
				return err
			}
			if failOnChange && !diff.Empty() {
				return fmt.Errorf("%s diff %s: indexes differ", build.StepMechanism, args[1])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnChange, "fail-on-change", false, "Exit 1 when the indexes differ")
	return cmd
}

func writeIndented(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
