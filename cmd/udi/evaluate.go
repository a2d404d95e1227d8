package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/udi-dataset/internal/dataset"
	"github.com/banshee-data/udi-dataset/internal/report"
	"github.com/banshee-data/udi-dataset/internal/storage/sqlite"
	"github.com/banshee-data/udi-dataset/internal/submission"
)

const (
	plotFilename = "ap_by_class.png"
	htmlFilename = "report.html"
)

type evaluateOptions struct {
	Dataset    string
	Root       string
	InfoPath   string
	Detections string
	OutputDir  string
	Plot       bool
	HTML       bool
	Record     bool
}

func newEvaluateCmd(a *app) *cobra.Command {
	var opts evaluateOptions
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate detections with the external evaluator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Dataset, "dataset", dataset.UDIName, "Registered dataset name")
	cmd.Flags().StringVar(&opts.Root, "root", "", "Dataset root (overrides config)")
	cmd.Flags().StringVar(&opts.InfoPath, "info-path", "", "Info collection path (overrides config)")
	cmd.Flags().StringVarP(&opts.Detections, "detections", "d", "", "JSON file of per-frame detections")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "Evaluator output directory (overrides config)")
	cmd.Flags().BoolVar(&opts.Plot, "plot", false, "Write a per-class AP chart ("+plotFilename+")")
	cmd.Flags().BoolVar(&opts.HTML, "html", false, "Write an interactive report page ("+htmlFilename+")")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "Record the evaluation in the history database")
	_ = cmd.MarkFlagRequired("detections")
	return cmd
}

func runEvaluate(cmd *cobra.Command, a *app, opts evaluateOptions) error {
	cfg := a.cfg
	if opts.Root != "" {
		cfg.DatasetRoot = &opts.Root
	}
	if opts.InfoPath != "" {
		cfg.InfoPath = &opts.InfoPath
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.GetOutputDir()
	}

	dets, err := submission.ReadDetections(a.fs, opts.Detections)
	if err != nil {
		return err
	}
	ds, err := dataset.DefaultRegistry().Open(opts.Dataset, a.fs, cfg)
	if err != nil {
		return err
	}
	res, err := ds.Evaluate(dets, outputDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, res.Results[dataset.ResultKey])

	if opts.Plot {
		path := filepath.Join(outputDir, plotFilename)
		if err := report.PlotAP(res.Report, path); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	if opts.HTML {
		path := filepath.Join(outputDir, htmlFilename)
		f, err := createFile(path)
		if err != nil {
			return err
		}
		if err := report.RenderHTML(res.Report, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	if opts.Record {
		db, store, err := a.openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		e := sqlite.NewEvaluation(res.EvalSet, res.Report)
		if err := store.Insert(e); err != nil {
			return fmt.Errorf("record evaluation: %w", err)
		}
		fmt.Fprintf(out, "recorded evaluation %s\n", e.EvaluationID)
	}
	return nil
}
