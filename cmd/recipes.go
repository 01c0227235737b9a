package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/datacleaner-cli/internal/recipe"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "List available cleaning recipes",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTEPS\tPLAN\tDESCRIPTION")
		for _, def := range recipe.All() {
			plan := "free"
			if def.RequiresPro {
				plan = "pro"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", def.Type, def.Name, len(def.Steps), plan, def.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(recipesCmd)
}
