package commands

import (
	"fmt"
	"os"

	"partwatch/internal/catalog"
	"partwatch/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	catalogModel string
	catalogPart  string
)

func init() {
	catalogCmd.Flags().StringVar(&catalogModel, "model", "", "Print the parts of this model instead of the model list.")
	catalogCmd.Flags().StringVar(&catalogPart, "part", "", "Print the listings of this part, requires --model.")
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog [--model <model> [--part <part>]]",
	Short: "Browses the newest snapshot by series, model and part.",
	Run: func(cmd *cobra.Command, args []string) {
		if catalogPart != "" && catalogModel == "" {
			serviceutil.Fatal("invalid flags", fmt.Errorf("--part requires --model"))
		}

		a := mustOpenApp()
		defer a.Close()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)

		var err error
		switch {
		case catalogPart != "":
			err = printListings(cmd, a, t)
		case catalogModel != "":
			err = printParts(cmd, a, t)
		default:
			err = printModels(cmd, a, t)
		}
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to read catalog", err)
		}
		t.Render()
	},
}

func printModels(cmd *cobra.Command, a *app, t table.Writer) error {
	c, err := a.views.Catalog(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("snapshot %s (%s)\n", c.CapturedAt.Format(catalog.CAPTURED_AT_LAYOUT), c.RunId)

	t.AppendHeader(table.Row{"Series", "Model", "Label"})
	for _, series := range c.Series {
		for _, m := range series.Models {
			t.AppendRow(table.Row{series.Name, m.Model, m.Label})
		}
		t.AppendSeparator()
	}
	return nil
}

func printParts(cmd *cobra.Command, a *app, t table.Writer) error {
	parts, err := a.views.Parts(cmd.Context(), catalogModel)
	if err != nil {
		return err
	}
	t.AppendHeader(table.Row{"Part"})
	for _, part := range parts {
		t.AppendRow(table.Row{part})
	}
	return nil
}

func printListings(cmd *cobra.Command, a *app, t table.Writer) error {
	listings, err := a.views.Listings(cmd.Context(), catalogModel, catalogPart)
	if err != nil {
		return err
	}
	t.AppendHeader(table.Row{"Name", "Price", "VAT", "Total", "Status"})
	for _, l := range listings {
		t.AppendRow(table.Row{l.Name, l.Price, l.Vat, l.Total, l.Status})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return nil
}
