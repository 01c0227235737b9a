package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/datacleaner-cli/internal/engine"
)

var approveCmd = &cobra.Command{
	Use:   "approve <job-id>",
	Short: "Approve a job awaiting review",
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
		if err := e.Engine.StateMachine().Approve(ctx, job); err != nil {
			if engine.IsInvalidTransition(err) {
				return fmt.Errorf("job %s is %s, only needs_review jobs can be approved", job.ID, job.Status)
			}
			return err
		}

		fmt.Printf("job %s approved\n", job.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(approveCmd)
}
