package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battoverlay/pkg/overlay"
)

// Commands carrying this annotation do not talk to a running daemon.
const annotationNoDaemon = "battoverlay/no-daemon"

// parseLevelArg checks there is exactly one argument. The daemon does the
// actual parsing so fractional and out-of-range values behave like the
// numeric input.
func parseLevelArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("invalid number of arguments")
	}
	if _, err := strconv.ParseFloat(args[0], 64); err != nil {
		return "", fmt.Errorf("invalid level: %v", err)
	}
	return args[0], nil
}

func logSnapshot(s *overlay.Snapshot) {
	logrus.WithFields(logrus.Fields{
		"level":    s.Level,
		"fill":     s.FillPercent,
		"charging": s.ChargingLabel,
	}).Debug("daemon responded")
}

func newEnableDisableCommand(
	use, short, long string,
	enableFunc func() (*overlay.Snapshot, error),
	disableFunc func() (*overlay.Snapshot, error),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		GroupID: gBasic,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Enable " + short,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := enableFunc()
				if err != nil {
					return fmt.Errorf("failed to enable %s: %w", use, err)
				}
				logSnapshot(ret)
				logrus.Infof("successfully enabled %s", use)
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable " + short,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := disableFunc()
				if err != nil {
					return fmt.Errorf("failed to disable %s: %w", use, err)
				}
				logSnapshot(ret)
				logrus.Infof("successfully disabled %s", use)
				return nil
			},
		},
	)

	return cmd
}
