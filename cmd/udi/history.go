package main

import (
	"fmt"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded evaluations",
	}
	cmd.AddCommand(newHistoryListCmd(a), newHistoryShowCmd(a), newHistoryDeleteCmd(a))
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded evaluations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			evals, err := store.List(limit)
			if err != nil {
				return err
			}
			if len(evals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No evaluations recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tVERSION\tSET\tCREATED")
			fmt.Fprintln(w, "--\t-------\t---\t-------")
			for _, e := range evals {
				created := time.Unix(0, e.CreatedAt).Local().Format("2006-01-02 15:04")
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.EvaluationID, e.DatasetVersion, e.EvalSet, created)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows (0 for all)")
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <evaluation-id>",
		Short: "Show one recorded evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			e, err := store.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "evaluation %s (%s, %s)\n", e.EvaluationID, e.DatasetVersion, e.EvalSet)
			fmt.Fprint(out, e.Summary)

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "CLASS\tMETRIC\tVALUE")
			for _, m := range e.Metrics {
				value := "NaN"
				if !math.IsNaN(m.Value) {
					value = fmt.Sprintf("%.4f", m.Value)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.ClassName, m.MetricKey, value)
			}
			return w.Flush()
		},
	}
}

func newHistoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <evaluation-id>",
		Short: "Delete a recorded evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
