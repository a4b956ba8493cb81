package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openscribe/scribe/internal/bus"
	"github.com/openscribe/scribe/internal/config"
	"github.com/openscribe/scribe/internal/daemon"
	"github.com/openscribe/scribe/internal/inference"
	"github.com/openscribe/scribe/internal/tui"
)

const version = "0.1.0"

func main() {
	_ = rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Voice note capture with local speech recognition and LLM cleanup",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		toggleCmd(),
		statusCmd(),
		processCmd(),
		chatCmd(),
		cancelCmd(),
		stopCmd(),
		checkCmd(),
		configureCmd(),
		versionCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := daemon.New()
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle recording on/off",
		RunE:  sendCmd(bus.CmdToggle, ""),
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get daemon and recording status",
		RunE:  sendCmd(bus.CmdStatus, ""),
	}
}

func processCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the captured transcript through the inference backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdProcess, prompt)
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "custom instruction instead of the default one")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one chat message to the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdChat, strings.Join(args, " "))
		},
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the in-flight inference or chat request",
		RunE:  sendCmd(bus.CmdCancel, ""),
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE:  sendCmd(bus.CmdStop, ""),
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the configured inference endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ok, err := inference.CheckAvailability(cfg.Inference.EndpointURL)
			if !ok {
				return fmt.Errorf("inference server not available: %v", err)
			}
			fmt.Printf("inference server at %s is responding\n", cfg.Inference.EndpointURL)
			return nil
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Edit the configuration interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return tui.Run(cfg)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scribe %s\n", version)
		},
	}
}

func sendCmd(b byte, arg string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return send(b, arg)
	}
}

func send(b byte, arg string) error {
	resp, err := bus.SendCommand(b, arg)
	if err != nil {
		return err
	}
	fmt.Print(resp)
	return nil
}
