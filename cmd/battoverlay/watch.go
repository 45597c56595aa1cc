package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battoverlay/pkg/events"
)

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Follow battery changes as the widget sees them",
		GroupID: gBasic,
		Long: `Follow battery level, charging and widget visibility changes until interrupted.

The stream reconnects automatically if the daemon restarts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for ev := range apiClient.SubscribeEvents(ctx) {
				ts := time.Now().Format(time.Kitchen)
				switch ev.Name {
				case events.BatteryLevel:
					p, err := events.DecodeAs[events.BatteryLevelEvent](ev)
					if err != nil {
						logrus.WithError(err).Warn("bad level event")
						continue
					}
					cmd.Printf("%s level %s (fill %s)\n", ts, bold("%d%%", p.Level), fillBar(p.FillPercent))
				case events.BatteryCharging:
					p, err := events.DecodeAs[events.BatteryChargingEvent](ev)
					if err != nil {
						logrus.WithError(err).Warn("bad charging event")
						continue
					}
					label := color.RedString(p.Label)
					if p.Charging {
						label = color.GreenString(p.Label)
					}
					cmd.Printf("%s state %s\n", ts, bold("%s", label))
				case events.WidgetVisibility:
					p, err := events.DecodeAs[events.WidgetVisibilityEvent](ev)
					if err != nil {
						logrus.WithError(err).Warn("bad visibility event")
						continue
					}
					cmd.Printf("%s widget visible %s\n", ts, bool2Text(p.Visible))
				default:
					logrus.WithField("event", ev.Name).Debug(string(ev.Data))
				}
			}

			return nil
		},
	}
}
