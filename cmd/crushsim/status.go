package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"crushsim/internal/transport"
	"crushsim/internal/ui"
	"crushsim/pkg/sdk/client"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var socketPath string
	var fixturePath string
	var steps int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Install a fixture (if given) and render the hierarchy and PG peering phases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			target := resolveTarget(socketPath)
			if target == "" {
				target = client.DefaultSocketPath()
			}

			c, err := client.NewUnix(target)
			if err != nil {
				return fmt.Errorf("connect to %q: %w", target, err)
			}
			defer c.Close()

			var tree transport.BucketNode
			if fixturePath != "" {
				text, err := os.ReadFile(fixturePath)
				if err != nil {
					return err
				}
				resp, err := c.Rule(ctx, string(text))
				if err != nil {
					return err
				}
				tree = resp.Data
			}

			phases := map[int]string{}
			for i := 0; i < steps; i++ {
				frame, err := c.Step(ctx)
				if err != nil {
					return err
				}
				applyPeeringEvents(phases, frame.Events)
			}

			if tree.Name != "" {
				fmt.Println(ui.Bold("Hierarchy"))
				fmt.Print(renderTree(tree, 0))
				fmt.Println()
			}

			fmt.Println(ui.Bold("Placement groups"))
			fmt.Print(renderPhases(phases))
			return nil
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "", "Path to the crushsimd Unix socket (defaults to the current context, then the platform default)")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "YAML hierarchy/rule fixture to install before stepping")
	cmd.Flags().IntVar(&steps, "steps", 0, "Number of step calls to issue before rendering PG phases")
	return cmd
}

// applyPeeringEvents folds a batch of events into the last-known peering
// phase per PG: peering_start moves a PG to "peering", either resolution
// moves it back to "active". Every other event kind is irrelevant to phase.
func applyPeeringEvents(phases map[int]string, events []transport.EventJSON) {
	for _, ev := range events {
		switch ev.Type {
		case "peering_start":
			phases[ev.PG] = "peering"
		case "peering_success", "peering_failure":
			phases[ev.PG] = "active"
		}
	}
}

func renderPhases(phases map[int]string) string {
	if len(phases) == 0 {
		return ui.Muted("  (no peering activity observed)") + "\n"
	}

	ids := make([]int, 0, len(phases))
	for id := range phases {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var sb strings.Builder
	for _, id := range ids {
		phase := phases[id]
		rendered := phase
		if phase == "peering" {
			rendered = ui.Warn(phase)
		} else {
			rendered = ui.Success(phase)
		}
		sb.WriteString(fmt.Sprintf("  pg %-4d %s\n", id, rendered))
	}
	return sb.String()
}

func renderTree(node transport.BucketNode, depth int) string {
	var sb strings.Builder
	indent := strings.Repeat("  ", depth)
	label := node.Name
	if node.Type == "osd" {
		label = ui.Accent(label)
	} else {
		label = ui.Bold(label)
	}
	sb.WriteString(fmt.Sprintf("%s%s\n", indent, label))
	for _, child := range node.Children {
		sb.WriteString(renderTree(child, depth+1))
	}
	return sb.String()
}
