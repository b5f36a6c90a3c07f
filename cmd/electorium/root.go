package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VeltarosLabs/electorium/internal/config"
	"github.com/VeltarosLabs/electorium/internal/logging"
	"github.com/VeltarosLabs/electorium/internal/names"
	"github.com/VeltarosLabs/electorium/internal/storage"
	"github.com/VeltarosLabs/electorium/pkg/version"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath  string
	logLevel string
	dataDir  string
	noColor  bool

	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "electorium",
		Short:         "Delegated-vote election counter and fuzz harness",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "config file (default ./"+config.DefaultPath+" if present)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&a.dataDir, "data-dir", "", "data directory for corpus and findings")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newVersionCmd(),
		newTallyCmd(a),
		newFuzzCmd(a),
		newCompileCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("data-dir") {
		cfg.Storage.DataDir = a.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.noColor {
		color.NoColor = true
	}
	a.cfg = cfg
	a.log = logging.NewWriter(cmd.ErrOrStderr(), logging.Config(cfg.Log))
	return nil
}

func (a *app) store() (*storage.Store, error) {
	return storage.New(a.cfg.Storage.DataDir)
}

func (a *app) nameTable() (*names.Table, error) {
	if a.cfg.Fuzz.Names == "" {
		return names.Default(), nil
	}
	return names.Load(a.cfg.Fuzz.Names)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte(version.Get().String()))
			return err
		},
	}
}
