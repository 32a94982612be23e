package commands

import (
	"net/http"

	"partwatch/internal/httpapi"
	"partwatch/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

func (a *app) router() http.Handler {
	return httpapi.Router(httpapi.Options{
		Views:      a.views,
		Runner:     a.pipeline,
		RunTimeout: a.cfg.RunTimeout(),
		Metrics:    a.metrics.Handler(),
	}, a.tel)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the catalog api without crawling on a schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp()
		defer a.Close()

		err := serviceutil.ServeHttp(cmd.Context(), a.cfg.Http.Port, a.router())
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to serve", err)
		}
	},
}
