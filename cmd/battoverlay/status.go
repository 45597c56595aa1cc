package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battoverlay/pkg/client"
	"github.com/charlie0129/battoverlay/pkg/config"
	"github.com/charlie0129/battoverlay/pkg/overlay"
)

type statusData struct {
	state     *overlay.Snapshot
	telemetry *client.Telemetry
	config    *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	state, err := apiClient.GetState()
	if err != nil {
		return nil, fmt.Errorf("failed to get battery state: %w", err)
	}

	telemetry, err := apiClient.GetTelemetry()
	if err != nil {
		return nil, fmt.Errorf("failed to get telemetry: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		state:     state,
		telemetry: telemetry,
		config:    conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current battery state of the instance",
		Long:    `Get the battery state shown in the widget, instance telemetry, and configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			conf := config.NewFileFromConfig(data.config, "")
			s := data.state

			cmd.Println(bold("%s:", s.Title))
			cmd.Printf("  %s: %s\n", s.Labels[config.LabelChargeLevel], bold("%d%%", s.Level))
			cmd.Printf("  Fill: %s\n", fillBar(s.FillPercent))

			state := "unknown (instance has not reported yet)"
			if s.Charging != nil {
				if *s.Charging {
					state = color.GreenString(s.ChargingLabel)
				} else {
					state = color.RedString(s.ChargingLabel)
				}
			}
			cmd.Printf("  %s: %s\n", s.Labels[config.LabelChargeState], bold("%s", state))

			cmd.Println()

			cmd.Println(bold("Widget:"))
			cmd.Println("  Toolbar button: " + bool2Text(s.ToolbarButton))
			cmd.Println("  Visible: " + bool2Text(s.Visible))

			cmd.Println()

			t := data.telemetry
			cmd.Println(bold("Instance:"))
			cmd.Println("  Reporting: " + bool2Text(t.Live))
			cmd.Printf("  Messages received: %s\n", bold("%d", t.TotalMessages))
			cmd.Printf("  Messages in the last minute: %s\n", bold("%d", t.MessagesLastMin))
			if !t.LastMessageAt.IsZero() {
				cmd.Printf("  Last message: %s\n", bold("%s", t.LastMessageAt.Local().Format("15:04:05")))
			}
			cmd.Printf("  Event subscribers: %s\n", bold("%d", t.Subscribers))

			cmd.Println()

			tr := conf.Transport()
			cmd.Println(bold("Configuration:"))
			cmd.Printf("  Default level: %s\n", bold("%d%%", conf.DefaultLevel()))
			if conf.SendThrottle() > 0 {
				cmd.Printf("  Send throttle: %s\n", bold("%s", conf.SendThrottle()))
			} else {
				cmd.Printf("  Send throttle: %s\n", bold("off"))
			}
			cmd.Printf("  Transport: %s\n", bold("%s", tr.Kind))
			switch tr.Kind {
			case config.TransportWebSocket:
				cmd.Printf("  URL: %s\n", bold("%s", tr.URL))
			case config.TransportMQTT:
				cmd.Printf("  Broker: %s\n", bold("%s", tr.Broker))
				cmd.Printf("  Instance: %s\n", bold("%s/%s", tr.TopicRoot, tr.InstanceID))
			}
			return nil
		},
	}
}

func fillBar(percent float64) string {
	const width = 20
	n := int(percent / 100 * width)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return fmt.Sprintf("[%s%s] %.1f%%", strings.Repeat("#", n), strings.Repeat(" ", width-n), percent)
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
