package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/livescribe/internal/bus"
	"github.com/leonardotrapani/livescribe/internal/config"
	"github.com/leonardotrapani/livescribe/internal/daemon"
	"github.com/leonardotrapani/livescribe/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "livescribe",
	Short: "Live speech recognition with a single start/stop toggle",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		sendCmd("toggle", "Start or stop recognition", bus.CmdToggle),
		sendCmd("start", "Start a new recognition session", bus.CmdStart),
		sendCmd("stop-session", "Stop the current recognition session", bus.CmdStop),
		sendCmd("status", "Show whether recognition is running", bus.CmdStatus),
		transcriptCmd(),
		watchCmd(),
		sendCmd("stop", "Stop the daemon", bus.CmdQuit),
		sendCmd("version", "Get protocol version", bus.CmdVersion),
		configureCmd(),
	)
}

func serveCmd() *cobra.Command {
	var debug bool
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := daemon.New(
				daemon.WithLogger(log.Default()),
				daemon.WithDebug(debug),
				daemon.WithConfigPath(configPath),
			)
			return d.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "log at debug level")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default $"+config.PathEnv+" or the user config dir)")
	return cmd
}

// sendCmd sends a single control command and prints the daemon's reply.
func sendCmd(use, short string, command byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(command)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func transcriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcript",
		Short: "Print the current or last transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdText)
			if err != nil {
				return fmt.Errorf("failed to get transcript: %w", err)
			}
			text, err := bus.ParseText(resp)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream the button label and transcript as they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return bus.Watch(ctx, func(st bus.State) {
				fmt.Printf("[%s] %s\n", st.Label, st.Text)
			})
		},
	}
}

func configureCmd() *cobra.Command {
	var initOnly bool

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration for livescribe.
This walks through:
- Recognition provider, model, language and API key
- Recording device and sample rate
- Notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if initOnly {
				path, err := config.SaveDefaultConfig()
				if err != nil {
					return err
				}
				fmt.Printf("Config file: %s\n", path)
				return nil
			}
			return runConfigure()
		},
	}

	cmd.Flags().BoolVar(&initOnly, "init", false, "write the default config file and exit")
	return cmd
}

func runConfigure() error {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration editor error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}
	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved."))
	if _, err := bus.SendCommand(bus.CmdVersion); err == nil {
		fmt.Println("The running daemon picks up the change on the next session.")
	} else {
		fmt.Println("Start the daemon with: livescribe serve")
	}

	path, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", path)
	return nil
}
