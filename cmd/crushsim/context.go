package main

import (
	"fmt"
	"sort"

	"crushsim/config"
	"crushsim/internal/ui"

	"github.com/spf13/cobra"
)

// contextCmd returns the parent "crushsim context" command: named daemon
// targets (a Unix socket path or an SSH host), stored the way the teacher
// stores named network contexts.
func contextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage named crushsimd targets",
	}
	cmd.AddCommand(contextListCmd())
	cmd.AddCommand(contextUseCmd())
	cmd.AddCommand(contextAddCmd())
	cmd.AddCommand(contextRemoveCmd())
	return cmd
}

func contextAddCmd() *cobra.Command {
	var host, socket string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := args[0]
			if host == "" && socket == "" {
				return fmt.Errorf("at least one of --host or --socket is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Set(name, config.Context{Host: host, Socket: socket})
			if err := cfg.Save(); err != nil {
				return err
			}

			fmt.Printf("Context %s saved.\n", ui.Bold(name))
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "SSH target (e.g. root@host)")
	cmd.Flags().StringVar(&socket, "socket", "", "Unix socket path")
	return cmd
}

func contextUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Set the current context",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Use(args[0]); err != nil {
				return err
			}
			return cfg.Save()
		},
	}
}

func contextRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Remove(args[0]); err != nil {
				return err
			}
			return cfg.Save()
		},
	}
}

func contextListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available contexts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.Contexts) == 0 {
				fmt.Println(ui.Muted("No contexts configured."))
				return nil
			}

			names := make([]string, 0, len(cfg.Contexts))
			for name := range cfg.Contexts {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				c := cfg.Contexts[name]
				marker := " "
				if name == cfg.CurrentContext {
					marker = "*"
				}
				fmt.Printf("%s %-16s %s\n", marker, name, c.Target())
			}
			return nil
		},
	}
}

// resolveTarget picks the dial target for status/other commands: an
// explicit --socket flag wins, otherwise the current context's target,
// otherwise the platform default.
func resolveTarget(explicitSocket string) string {
	if explicitSocket != "" {
		return explicitSocket
	}
	if cfg, err := config.Load(); err == nil {
		if _, ctx, ok := cfg.Current(); ok {
			if t := ctx.Target(); t != "" {
				return t
			}
		}
	}
	return ""
}
