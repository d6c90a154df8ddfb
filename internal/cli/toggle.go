package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/navikt/dp-datalaster-inntekt/internal/toggle"
)

type toggleStatus struct {
	toggle.Toggle `yaml:",inline"`
	Stored        bool   `json:"stored" yaml:"stored"`
	Cluster       string `json:"cluster" yaml:"cluster"`
	Active        bool   `json:"active" yaml:"active"`
}

func newToggleCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Inspect and change feature toggles",
	}
	cmd.AddCommand(newToggleGetCommand(opts), newToggleSetCommand(opts))
	return cmd
}

func newToggleGetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get [name]",
		Short: "Show a toggle and whether it is active in this cluster",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := toggle.EnabledToggle
			if len(args) == 1 {
				name = args[0]
			}

			store, closeStore, err := newToggleStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			t, found, err := store.Get(cmd.Context(), name)
			if err != nil {
				return err
			}
			active, err := store.IsEnabled(cmd.Context(), name)
			if err != nil {
				return err
			}
			if !found {
				t = toggle.Toggle{Name: name}
			}

			status := toggleStatus{Toggle: t, Stored: found, Cluster: opts.cfg.Cluster, Active: active}
			if opts.printer.Structured() {
				return opts.printer.Encode(status)
			}

			table := NewTable("NAME", "STORED", "ENABLED", "STRATEGY", "CLUSTERS", "ACTIVE")
			table.AddRow(t.Name,
				strconv.FormatBool(found),
				strconv.FormatBool(t.Enabled),
				t.Strategy,
				strings.Join(t.Clusters, ","),
				strconv.FormatBool(active),
			)
			opts.printer.Render(table)
			return nil
		},
	}
}

func newToggleSetCommand(opts *options) *cobra.Command {
	var (
		strategy string
		clusters string
	)

	cmd := &cobra.Command{
		Use:   "set <name> <on|off>",
		Short: "Store a toggle",
		Long: `Store a toggle in Redis. With --strategy byCluster the toggle is only active
in the clusters listed by --clusters.

Examples:
  datalaster toggle set dp-datalaster-inntekt.enabled off
  datalaster toggle set dp-datalaster-inntekt.enabled on --strategy byCluster --clusters dev-fss`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			if strategy != toggle.StrategyDefault && strategy != toggle.StrategyByCluster {
				return fmt.Errorf("unknown strategy %q: use %s or %s", strategy, toggle.StrategyDefault, toggle.StrategyByCluster)
			}

			store, closeStore, err := newToggleStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			t := toggle.Toggle{
				Name:     args[0],
				Enabled:  enabled,
				Strategy: strategy,
				Clusters: toggle.ParseClusters(clusters),
			}
			if err := store.Set(cmd.Context(), t); err != nil {
				return err
			}
			opts.printer.Success("Toggle %s set to %s (%s)", t.Name, args[1], t.Strategy)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", toggle.StrategyDefault, "strategy: default or byCluster")
	cmd.Flags().StringVar(&clusters, "clusters", "", "comma-separated clusters for byCluster")
	return cmd
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "enabled":
		return true, nil
	case "off", "false", "disabled":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}
