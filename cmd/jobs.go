package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/datacleaner-cli/internal/model"
	"github.com/sells-group/datacleaner-cli/internal/store"
)

var (
	jobsStatus string
	jobsUser   string
	jobsLimit  int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect cleaning jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		jobs, err := e.Store.ListJobs(ctx, store.JobFilter{
			Status: model.JobStatus(jobsStatus),
			UserID: jobsUser,
			Limit:  jobsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list jobs")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRECIPE\tSTATUS\tCONFIDENCE\tCOST\tCREATED")
		for _, j := range jobs {
			conf := "-"
			if j.Confidence != nil {
				conf = fmt.Sprintf("%.2f", *j.Confidence)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%.4f\t%s\n",
				j.ID, j.Recipe, j.Status, conf, j.CostUSD, j.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job with its step audit trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		job, err := e.Store.GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		runs, err := e.Store.ListRecipeRuns(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Job  *model.Job        `json:"job"`
			Runs []model.RecipeRun `json:"runs"`
		}{Job: job, Runs: runs})
	},
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status")
	jobsListCmd.Flags().StringVar(&jobsUser, "user", "", "filter by user id")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 50, "max jobs to list")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	rootCmd.AddCommand(jobsCmd)
}
