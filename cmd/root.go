// Package cmd wires the scriptdex command line: one subcommand per build step, the
// full build, the mechanism index tools and the HTTP server.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/client/commands"
	"scriptdex/internal/config"
	"scriptdex/internal/version"
)

// app is the state shared by the commands of one root command.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
}

// Execute runs the root command and exits 1 on any error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run executes one command line. Failures print a single "Error: <step> <path>: <cause>"
// line; debug logging adds the full error chain.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err != nil {
		slogger.Debug(ctx, "Command failed", slogger.Fields{
			"args":  strings.Join(args, " "),
			"error": fmt.Sprintf("%+v", err),
		})
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return err
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:   "scriptdex",
		Short: "Index a game script corpus and serve the catalog",
		Long: `scriptdex reads the Lua script corpus of a game install, extracts items, recipes,
cooking and farming data, links them into a catalog with resolved tuning values, and
writes versioned JSON and SQLite artifacts under <project-root>/data/index/.

The serve command exposes the artifacts over a read-only HTTP API.`,
		Version:           version.GetVersion().Version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.initConfig() },
	}
	root.SetVersionTemplate(version.GetVersion().FormatFull())

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "json", "Log format (json, text)")
	flags.String("project-root", "", "Project root; artifacts go to <project-root>/data/index")
	flags.String("dst-root", "", "Game install root")
	flags.String("scripts-zip", "", "Path to scripts.zip")
	flags.String("scripts-dir", "", "Path to an unpacked scripts directory")
	flags.Bool("force", false, "Rebuild artifacts even when the corpus hash is unchanged")
	a.bindFlags(root, map[string]string{
		"log-level":    "log.level",
		"log-format":   "log.format",
		"project-root": "paths.project_root",
		"dst-root":     "paths.dst_root",
		"scripts-zip":  "paths.scripts_zip",
		"scripts-dir":  "paths.scripts_dir",
		"force":        "build.force",
	})

	root.AddCommand(
		newBuildCmd(a),
		newResindexCmd(a),
		newCatalogCmd(a),
		newCatalogSQLiteCmd(a),
		newCatindexCmd(a),
		newI18nCmd(a),
		newIconsCmd(a),
		newFarmingDefsCmd(a),
		newIndexManifestCmd(a),
		newQualityCmd(a),
		newMechanismIndexCmd(a),
		newServeCmd(a),
		newVersionCmd(),
		commands.NewClientCmd(),
	)
	return root
}

// bindFlags binds persistent or local flags of cmd to viper keys.
func (a *app) bindFlags(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if err := a.v.BindPFlag(key, flag); err != nil {
			panic(fmt.Errorf("bind flag %s: %w", name, err))
		}
	}
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath("./configs")
		a.v.AddConfigPath(".")
	}

	a.v.SetEnvPrefix("SCRIPTDEX")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if err := slogger.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}
