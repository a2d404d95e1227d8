package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/udi-dataset/internal/config"
	"github.com/banshee-data/udi-dataset/internal/fsutil"
	"github.com/banshee-data/udi-dataset/internal/monitoring"
	"github.com/banshee-data/udi-dataset/internal/storage/sqlite"
	"github.com/banshee-data/udi-dataset/internal/version"
)

// app holds state shared by subcommands.
type app struct {
	configPath string
	dbPath     string
	quiet      bool

	cfg *config.Config
	fs  fsutil.FileSystem
}

func newApp() *app {
	return &app{fs: fsutil.OSFileSystem{}}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "udi",
		Short:         "UDI LiDAR dataset tooling",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.quiet {
				monitoring.SetLogger(nil)
			} else {
				monitoring.SetOutput(cmd.ErrOrStderr(), "udi: ")
			}
			if a.configPath == "" {
				a.cfg = config.EmptyConfig()
				return nil
			}
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a JSON config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Evaluation history database (default from config: udi_history.db)")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress progress and log output")

	root.AddCommand(
		newCreateInfosCmd(a),
		newEvaluateCmd(a),
		newBoxMeanCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
	)
	return root
}

// progress returns the writer for progress bars.
func (a *app) progress(cmd *cobra.Command) io.Writer {
	if a.quiet {
		return io.Discard
	}
	return cmd.ErrOrStderr()
}

// openStore opens the evaluation history database.
func (a *app) openStore() (*sqlite.DB, *sqlite.EvaluationStore, error) {
	path := a.dbPath
	if path == "" {
		path = a.cfg.GetDatabasePath()
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open history database: %w", err)
	}
	return db, sqlite.NewEvaluationStore(db.DB), nil
}

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
