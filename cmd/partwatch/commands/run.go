package commands

import (
	"errors"
	"fmt"

	"partwatch/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var errRunFailed = errors.New("the run did not store a snapshot")

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Logs in, crawls every configured category once and stores the snapshot.",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp()
		defer a.Close()

		ok, log := a.pipeline.RunOnce(cmd.Context(), a.cfg.RunTimeout())
		fmt.Print(log)
		if !ok {
			a.Close()
			serviceutil.Fatal("run failed", errRunFailed)
		}
	},
}
