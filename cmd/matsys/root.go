package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/woozymasta/matsys"
	"github.com/woozymasta/matsys/nullgfx"
	"github.com/woozymasta/matsys/stdshader"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config   string
	root     string
	logLevel string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "matsys",
		Short:         "Material definition tooling",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&g.config, "config", "c", "", "YAML or TOML config file")
	cmd.PersistentFlags().StringVarP(&g.root, "root", "r", "", "material root directory (overrides config)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newLintCmd(g), newDumpCmd(g), newCompileCmd(g), newWatchCmd(g))

	return cmd
}

// env is the runtime built from the global flags.
type env struct {
	cfg    matsys.Config
	logger *slog.Logger
	store  *matsys.VariableStore
	sys    *matsys.System
	gfx    *nullgfx.Backend
}

// setup loads the config and builds a system over the null backend.
func (g *globalFlags) setup(cmd *cobra.Command) (*env, error) {
	cfg := matsys.DefaultConfig()
	if g.config != "" {
		var err error
		if cfg, err = matsys.LoadConfig(g.config); err != nil {
			return nil, err
		}
	}
	if g.root != "" {
		cfg.Root = g.root
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	store := matsys.NewVariableStore(cfg.StoreOptions(logger))
	gfx := nullgfx.NewBackend()

	sys, err := matsys.NewSystem(store, matsys.Environment{
		Files:    matsys.FSReader{FS: os.DirFS(cfg.Root), Ext: cfg.Extension},
		Textures: nullgfx.NewTextureSet(),
		Backend:  gfx,
	}, cfg.SystemOptions(logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := stdshader.Register(sys.Registry()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register shaders: %w", err)
	}

	return &env{cfg: cfg, logger: logger, store: store, sys: sys, gfx: gfx}, nil
}

func (e *env) close() {
	e.sys.Close()
	_ = e.store.Close()
}
