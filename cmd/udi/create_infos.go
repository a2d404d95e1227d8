package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/udi-dataset/internal/infos"
	"github.com/banshee-data/udi-dataset/internal/labels"
)

func newCreateInfosCmd(a *app) *cobra.Command {
	var (
		out    string
		ver    string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "create-infos <root>",
		Short: "Build the info collection for a capture directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.GetDatasetRoot()
			if len(args) == 1 {
				root = args[0]
			}
			if out == "" {
				out = filepath.Join(root, infos.DefaultInfoFilename)
			}

			parser := labels.NewParser(a.fs)
			parser.StrictClasses = a.cfg.GetStrictClasses()
			if cmd.Flags().Changed("strict") {
				parser.StrictClasses = strict
			}

			b := infos.NewBuilder(a.fs, parser)
			b.Progress = a.progress(cmd)
			b.Version = ver
			if b.Version == "" {
				b.Version = a.cfg.GetVersion()
			}

			c, err := b.Create(root, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "train sample: %d\n", len(c.Infos))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default <root>/infos_udi_train.cbor)")
	cmd.Flags().StringVar(&ver, "version-tag", "", "Dataset version recorded in the collection metadata")
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject labels with unknown class names (overrides config)")
	return cmd
}
