package commands

import (
	"os"

	"partwatch/internal/classify"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var classifyCategory string

func init() {
	classifyCmd.Flags().StringVar(&classifyCategory, "category", "iPhone", "The category the names are listed under.")
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify <name>...",
	Short: "Prints the model and part the given product names classify as.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Model", "Part"})

		for _, name := range args {
			c := classify.Classify(classifyCategory, name)
			t.AppendRow(table.Row{name, c.Model, c.PartOr("(excluded)")})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
