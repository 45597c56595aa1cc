package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/battoverlay/pkg/client"
	"github.com/charlie0129/battoverlay/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/battoverlay.sock"
	configPath     = "/etc/battoverlay.json"
	daemonAddr     = ""
)

var apiClient *client.Client

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func setupClient() {
	if daemonAddr != "" {
		apiClient = client.NewTCPClient(daemonAddr)
		return
	}
	apiClient = client.NewClient(unixSocketPath)
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: battoverlay daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'battoverlay daemon', or point --daemon-socket / --daemon-addr at a running one.")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or restart the daemon with '--always-allow-non-root-access'")
	case errors.Is(err, client.ErrNoToolbar):
		fmt.Fprintln(os.Stderr, "\nError: the host console has no toolbar, so there is no battery button to click")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battoverlay",
		Short: "battoverlay controls the simulated battery of a device instance",
		Long: `battoverlay controls the simulated battery of a device instance.

It runs a small daemon that mirrors the battery level and charging state
reported by an instance, and sends level and charging commands back to it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}
			setupClient()

			if cmd.Annotations[annotationNoDaemon] != "" {
				return nil
			}

			daemonVersion, err := apiClient.GetVersion()
			if err == nil {
				if daemonVersion != version.Version {
					logrus.WithFields(logrus.Fields{
						"clientVersion": version.Version,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. battoverlay may not work as expected.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("battoverlay daemon is too old to report its version.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "battoverlay daemon unix socket path")
	globalFlags.StringVar(&daemonAddr, "daemon-addr", daemonAddr, "battoverlay daemon TCP address (overrides --daemon-socket)")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewSimulateCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewLevelCommand(),
		NewPreviewCommand(),
		NewChargingCommand(),
		NewToggleCommand(),
		NewWatchCommand(),
	)

	return cmd
}
