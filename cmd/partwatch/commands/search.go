package commands

import (
	"os"
	"strings"

	"partwatch/internal/httpapi"
	"partwatch/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", httpapi.DEFAULT_SEARCH_LIMIT, "The maximum number of results.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy searches the names of the newest snapshot.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp()
		defer a.Close()

		hits, err := a.views.Search(cmd.Context(), strings.Join(args, " "), searchLimit)
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to search", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Score", "Name", "Model", "Part", "Price"})
		for _, hit := range hits {
			t.AppendRow(table.Row{
				hit.Score,
				hit.Entry.Product.Name,
				hit.Entry.Model,
				hit.Entry.Part,
				hit.Entry.Product.PriceRaw,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
