package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battoverlay/pkg/overlay"
	"github.com/charlie0129/battoverlay/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		Annotations: map[string]string{annotationNoDaemon: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewLevelCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "level [percentage]",
		Short:   "Set the battery level of the instance",
		GroupID: gBasic,
		Long: `Set the battery level of the instance.

This is the same as releasing the slider or committing the numeric input: the
value is rounded, clamped to 0-100, shown in the widget and sent to the
instance together with the current charging state.`,
		RunE: func(_ *cobra.Command, args []string) error {
			value, err := parseLevelArg(args)
			if err != nil {
				return err
			}

			ret, err := apiClient.SetLevel(value)
			if err != nil {
				return fmt.Errorf("failed to set level: %w", err)
			}
			logSnapshot(ret)

			logrus.Infof("successfully set battery level to %d%%", ret.Level)

			return nil
		},
	}
}

func NewPreviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "preview [percentage]",
		Short:   "Show a battery level in the widget without sending it",
		GroupID: gAdvanced,
		Long: `Show a battery level in the widget without sending it.

This is the same as dragging the slider or typing in the numeric input. The
instance is not told about the new level until it is committed with
'battoverlay level', and the next report from the instance overrides it.`,
		RunE: func(_ *cobra.Command, args []string) error {
			value, err := parseLevelArg(args)
			if err != nil {
				return err
			}

			ret, err := apiClient.PreviewLevel(value)
			if err != nil {
				return fmt.Errorf("failed to preview level: %w", err)
			}
			logSnapshot(ret)

			logrus.Infof("widget now shows %d%% (not sent)", ret.Level)

			return nil
		},
	}
}

func NewChargingCommand() *cobra.Command {
	return newEnableDisableCommand(
		"charging",
		"charging",
		`Flip the charging switch of the widget.

Nothing is sent if the switch is already in the requested position.`,
		func() (*overlay.Snapshot, error) {
			return apiClient.SetCharging(true)
		},
		func() (*overlay.Snapshot, error) {
			return apiClient.SetCharging(false)
		},
	)
}

func NewToggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "toggle",
		Short:   "Show or hide the battery widget",
		GroupID: gBasic,
		Long:    `Click the battery button in the console toolbar, showing or hiding the widget.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			visible, err := apiClient.ToggleWidget()
			if err != nil {
				return fmt.Errorf("failed to toggle widget: %w", err)
			}

			if visible {
				logrus.Info("battery widget is now visible")
			} else {
				logrus.Info("battery widget is now hidden")
			}

			return nil
		},
	}
}
