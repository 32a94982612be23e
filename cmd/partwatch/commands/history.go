package commands

import (
	"fmt"

	"partwatch/internal/history"
	"partwatch/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Prints the price and availability changes between stored snapshots, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp()
		defer a.Close()

		days, err := a.views.History(cmd.Context())
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to compute history", err)
		}
		if len(days) == 0 {
			fmt.Println("no changes.")
			return
		}
		for _, day := range days {
			fmt.Println(history.FormatDay(day))
		}
	},
}
