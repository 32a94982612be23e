package commands

import (
	"context"

	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/notify"
	"partwatch/internal/scheduler"
	"partwatch/pkg/serviceutil"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Serves the catalog api and crawls once a day on a schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp()
		defer a.Close()

		ctx := cmd.Context()
		t, err := telemetry.Setup(ctx, "partwatch", a.cfg.Telemetry)
		if err != nil {
			a.Close()
			serviceutil.Fatal("setup telemetry", err)
		}
		defer t.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx, a.tel)

		sched := scheduler.New(a.pipeline, a.store, a.cfg.RunTimeout(), a.time, a.tel)
		if a.cfg.Email.Enabled() {
			sched.WithDigest(a.views, notify.NewNotifier(a.cfg.Email, a.tel))
		}

		cron := chrono.NewStandardCron(a.tel)
		err = sched.Start(ctx, cron, a.cfg.Schedule)
		if err != nil {
			a.Close()
			serviceutil.Fatal("invalid schedule", err)
		}

		group, ctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			sched.Tick(ctx)
			return nil
		})
		group.Go(func() error {
			return serviceutil.ServeHttp(ctx, a.cfg.Http.Port, a.router())
		})
		group.Go(func() error {
			<-ctx.Done()
			cron.Stop()
			return nil
		})

		err = group.Wait()
		if err != nil {
			a.Close()
			serviceutil.Fatal("daemon stopped", err)
		}
	},
}
