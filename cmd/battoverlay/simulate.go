package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battoverlay/pkg/simulator"
)

func NewSimulateCommand() *cobra.Command {
	var (
		listenAddr = "127.0.0.1:8765"
		level      = 50
		charging   = false
		schedule   = simulator.DefaultReportSchedule
		mirrorHost = false
	)

	cmd := &cobra.Command{
		Use:         "simulate",
		Short:       "Run a simulated device instance",
		GroupID:     gAdvanced,
		Annotations: map[string]string{annotationNoDaemon: "true"},
		Long: `Run a simulated device instance with a battery.

The simulator serves a websocket on ws://<listen>/ws. It reports its battery
state when a client connects, after every command it applies, and on the
report schedule. Point the daemon's websocket transport at it for local
development.`,
		Example: `  battoverlay simulate --level 80 --charging
  battoverlay simulate --schedule '*/30 * * * * *' (report every 30 seconds)
  battoverlay simulate --mirror-host`,
		RunE: func(_ *cobra.Command, _ []string) error {
			bat := simulator.NewBattery(level, charging)
			if mirrorHost {
				host, err := simulator.FromHost()
				if err != nil {
					logrus.WithError(err).Warn("failed to read host battery, using flags")
				} else {
					bat = host
				}
			}

			srv, err := simulator.NewServer(bat, schedule)
			if err != nil {
				return err
			}
			srv.Start()
			defer srv.Stop()

			hs := &http.Server{
				Addr:              listenAddr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logrus.WithFields(logrus.Fields{
					"addr":     listenAddr,
					"level":    bat.Level(),
					"mode":     bat.Mode(),
					"schedule": schedule,
				}).Info("simulator listening")
				if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigc:
				logrus.Infof("caught signal \"%s\": shutting down.", sig)
			case err := <-serveErr:
				return err
			}

			return hs.Close()
		},
	}

	f := cmd.Flags()
	f.StringVar(&listenAddr, "listen", listenAddr, "address to serve the instance websocket on")
	f.IntVar(&level, "level", level, "initial battery level")
	f.BoolVar(&charging, "charging", charging, "start charging")
	f.StringVar(&schedule, "schedule", schedule, "cron expression or descriptor for periodic reports, empty to disable")
	f.BoolVar(&mirrorHost, "mirror-host", mirrorHost, "seed the initial state from this machine's battery")

	return cmd
}
