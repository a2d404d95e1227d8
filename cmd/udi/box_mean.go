package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/udi-dataset/internal/boxcodec"
	"github.com/banshee-data/udi-dataset/internal/infos"
)

func newBoxMeanCmd(a *app) *cobra.Command {
	var (
		infoPath string
		class    string
	)
	cmd := &cobra.Command{
		Use:   "box-mean",
		Short: "Print the mean canonical box per class",
		RunE: func(cmd *cobra.Command, args []string) error {
			if infoPath == "" {
				infoPath = a.cfg.GetInfoPath()
			}
			c, err := infos.Load(a.fs, infoPath)
			if err != nil {
				return err
			}

			means := make(map[string]boxcodec.CanonicalBox)
			if class != "" {
				s, err := infos.BoxMean(c, class)
				if err != nil {
					return err
				}
				means[s.Class] = s.Mean
			} else {
				for _, s := range infos.AllBoxMeans(c) {
					means[s.Class] = s.Mean
				}
			}

			data, err := json.MarshalIndent(means, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&infoPath, "info-path", "", "Info collection path (overrides config)")
	cmd.Flags().StringVar(&class, "class", "", "Only this class (default: every class with boxes)")
	return cmd
}
