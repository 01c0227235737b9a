package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/datacleaner-cli/internal/model"
	"github.com/sells-group/datacleaner-cli/internal/recipe"
)

var (
	runFile   string
	runRecipe string
	runParams string
	runUser   string
	runPlan   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a cleaning recipe over a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var params map[string]any
		if runParams != "" {
			if err := json.Unmarshal([]byte(runParams), &params); err != nil {
				return eris.Wrap(err, "parse --params")
			}
		}

		recipeType := model.RecipeType(runRecipe)
		if err := recipe.ValidateParams(recipeType, params); err != nil {
			return err
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		job, err := e.Store.CreateJob(ctx, model.Job{
			UserID:     runUser,
			Plan:       model.Plan(runPlan),
			SourceFile: runFile,
			Recipe:     recipeType,
			Params:     params,
		})
		if err != nil {
			return eris.Wrap(err, "create job")
		}

		job, err = e.Engine.Execute(ctx, job.ID)
		if job != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(job)
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "source CSV/XLSX file (required)")
	runCmd.Flags().StringVar(&runRecipe, "recipe", "", "recipe id (required, see 'recipes')")
	runCmd.Flags().StringVar(&runParams, "params", "", "recipe parameters as JSON")
	runCmd.Flags().StringVar(&runUser, "user", "cli", "owning user id")
	runCmd.Flags().StringVar(&runPlan, "plan", "free", "plan tier: free or pro")
	_ = runCmd.MarkFlagRequired("file")
	_ = runCmd.MarkFlagRequired("recipe")
	rootCmd.AddCommand(runCmd)
}
