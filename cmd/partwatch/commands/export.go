package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"partwatch/internal/store"
	"partwatch/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "One of csv, markdown or table.")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "The file to write to, stdout when empty.")
	rootCmd.AddCommand(exportCmd)
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

// exportRows renders every stored row under the stored header.
func exportRows(ctx context.Context, st *store.Store, format string, out io.Writer) error {
	var render func(t table.Writer) string
	switch format {
	case "csv":
		render = table.Writer.RenderCSV
	case "markdown":
		render = table.Writer.RenderMarkdown
	case "table":
		render = table.Writer.Render
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	header, err := st.Header(ctx)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		header = store.HEADER
	}

	t := table.NewWriter()
	t.AppendHeader(toRow(header))
	err = st.Rows(ctx, func(r store.Row) error {
		t.AppendRow(toRow(r.Values()))
		return nil
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, render(t))
	return err
}

var exportCmd = &cobra.Command{
	Use:   "export [--format csv|markdown|table] [--out <file>]",
	Short: "Writes every stored row, oldest first.",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp()
		defer a.Close()

		var out io.Writer = os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				a.Close()
				serviceutil.Fatal("failed to create output", err)
			}
			defer f.Close()
			out = f
		}

		err := exportRows(cmd.Context(), a.store, exportFormat, out)
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to export", err)
		}
	},
}
