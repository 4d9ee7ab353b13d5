package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"crushsim/internal/config"
	"crushsim/internal/crush"
	"crushsim/internal/logging"
	"crushsim/internal/sim"
	"crushsim/internal/transport"
	"crushsim/pkg/sdk/defaults"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var socketPath string
	var instance string
	var fixturePath string
	var chooseTotalTries int
	var debug bool

	cmd := &cobra.Command{
		Use:     "crushsimd",
		Short:   "CRUSH placement simulator daemon",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if socketPath == "" {
				socketPath = defaults.InstanceSocketPath("", instance)
			}

			parser := &config.FixtureParser{}
			handler := transport.NewHandler(parser, crush.Tunables{ChooseTotalTries: chooseTotalTries}, sim.DefaultPoolReplicas)

			if fixturePath != "" {
				text, err := os.ReadFile(fixturePath)
				if err != nil {
					return err
				}
				frame, err := json.Marshal(transport.Inbound{Type: "rule", Message: string(text)})
				if err != nil {
					return err
				}
				if _, err := handler.Handle(frame); err != nil {
					return err
				}
			}

			return serve(ctx, socketPath, handler)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&socketPath, "socket", "", "Unix socket path (defaults to a per-instance path under the data root)")
	cmd.Flags().StringVar(&instance, "instance", "", "Named instance, used to derive --socket when it is unset")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "YAML hierarchy/rule fixture to install at startup")
	cmd.Flags().IntVar(&chooseTotalTries, "choose-total-tries", 50, "CRUSH choose_total_tries tunable")
	cmd.AddCommand(dialStdioCmd())
	return cmd
}
