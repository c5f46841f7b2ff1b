package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"secanalytics/core"
	"secanalytics/overview"

	"github.com/spf13/cobra"
)

// overviewReport is the structured output of the overview command
type overviewReport struct {
	Window    core.TimeWindow         `json:"window" yaml:"window"`
	Detectors int                     `json:"detectors" yaml:"detectors"`
	Findings  int                     `json:"findings" yaml:"findings"`
	Alerts    int                     `json:"alerts" yaml:"alerts"`
	Summary   overview.Summary        `json:"summary" yaml:"summary"`
	ViewModel *core.OverviewViewModel `json:"view_model,omitempty" yaml:"view_model,omitempty"`
}

// refreshOverview runs a single refresh over [start, end] and returns the
// resulting snapshot and window
func refreshOverview(ctx context.Context, start, end string) (core.OverviewViewModel, core.TimeWindow, error) {
	components, cfg, cleanup, err := initComponents(ctx)
	if err != nil {
		return core.OverviewViewModel{}, core.TimeWindow{}, err
	}
	defer cleanup()

	if start == "" {
		start = cfg.Refresh.Start
	}
	if end == "" {
		end = cfg.Refresh.End
	}
	if _, err := core.ParseTimeRange(start, end, time.Now()); err != nil {
		return core.OverviewViewModel{}, core.TimeWindow{}, err
	}

	withSpinner("Refreshing overview...", func() {
		components.Actor.OnRefresh(ctx, start, end)
	})
	return components.Actor.Snapshot(), components.Actor.Window(), nil
}

type windowFlags struct {
	start string
	end   string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "Range start as date math or RFC 3339 (default: refresh.start)")
	cmd.Flags().StringVar(&f.end, "end", "", "Range end as date math or RFC 3339 (default: refresh.end)")
}

func newOverviewCmd() *cobra.Command {
	var (
		window   windowFlags
		interval time.Duration
		full     bool
	)

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Refresh the overview once and print a summary",
		Long: `Fetch detectors, findings and alerts, keep the findings and alerts inside
the time range and print a summary with the most recent items and the most
frequent rules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			vm, w, err := refreshOverview(ctx, window.start, window.end)
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = overview.DefaultInterval(w)
			}
			summary := overview.BuildSummary(vm, w, interval)

			report := overviewReport{
				Window:    w,
				Detectors: len(vm.Detectors),
				Findings:  len(vm.Findings),
				Alerts:    len(vm.Alerts),
				Summary:   summary,
			}
			if full {
				report.ViewModel = &vm
			}
			if ok, err := structured(cmd.OutOrStdout(), report); ok {
				return err
			}

			renderOverview(cmd.OutOrStdout(), w, summary, len(vm.Findings), len(vm.Alerts))
			return nil
		},
	}

	window.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", 0, "Histogram interval (default: derived from the range)")
	cmd.Flags().BoolVar(&full, "full", false, "Include the full view-model in JSON/YAML output")
	return cmd
}

func newDetectorsCmd() *cobra.Command {
	var showDisabled bool

	cmd := &cobra.Command{
		Use:     "detectors",
		Aliases: []string{"ls"},
		Short:   "List detectors",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			components, cfg, cleanup, err := initComponents(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var (
				detectors []core.Detector
				ok        bool
			)
			withSpinner("Loading detectors...", func() {
				detectors, ok = components.Detectors.GetDetectors(ctx)
			})
			if !ok {
				return fmt.Errorf("failed to load detectors from %s", cfg.Backend.URL)
			}

			if !showDisabled {
				filtered := detectors[:0]
				for _, d := range detectors {
					if d.Enabled {
						filtered = append(filtered, d)
					}
				}
				detectors = filtered
			}
			sort.Slice(detectors, func(i, j int) bool { return detectors[i].Name < detectors[j].Name })

			if ok, err := structured(cmd.OutOrStdout(), detectors); ok {
				return err
			}
			renderDetectorsTable(cmd.OutOrStdout(), detectors)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDisabled, "all", false, "Show disabled detectors")
	return cmd
}

func newFindingsCmd() *cobra.Command {
	var (
		window   windowFlags
		detector string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "findings [detector-id]",
		Short: "List findings inside the time range",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				detector = args[0]
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			vm, _, err := refreshOverview(ctx, window.start, window.end)
			if err != nil {
				return err
			}
			items := filterByDetector(vm.Findings, detector, func(f core.FindingItem) string { return f.DetectorID })
			sort.SliceStable(items, func(i, j int) bool { return items[i].Time.After(items[j].Time) })
			items = truncate(items, limit)

			if ok, err := structured(cmd.OutOrStdout(), items); ok {
				return err
			}
			renderFindingsTable(cmd.OutOrStdout(), items)
			return nil
		},
	}

	window.register(cmd)
	cmd.Flags().StringVarP(&detector, "detector", "d", "", "Only show findings of this detector id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show (0 for all)")
	return cmd
}

func newAlertsCmd() *cobra.Command {
	var (
		window   windowFlags
		detector string
		limit    int
		active   bool
	)

	cmd := &cobra.Command{
		Use:   "alerts [detector-id]",
		Short: "List alerts inside the time range",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				detector = args[0]
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			vm, _, err := refreshOverview(ctx, window.start, window.end)
			if err != nil {
				return err
			}
			items := filterByDetector(vm.Alerts, detector, func(a core.AlertItem) string { return a.DetectorID })
			if active {
				filtered := items[:0]
				for _, a := range items {
					if !a.Acknowledged {
						filtered = append(filtered, a)
					}
				}
				items = filtered
			}
			sort.SliceStable(items, func(i, j int) bool { return items[i].Time.After(items[j].Time) })
			items = truncate(items, limit)

			if ok, err := structured(cmd.OutOrStdout(), items); ok {
				return err
			}
			renderAlertsTable(cmd.OutOrStdout(), items)
			return nil
		},
	}

	window.register(cmd)
	cmd.Flags().StringVarP(&detector, "detector", "d", "", "Only show alerts of this detector id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&active, "active", false, "Hide acknowledged alerts")
	return cmd
}

func newThreatIntelCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "threat-intel",
		Aliases: []string{"ti"},
		Short:   "List threat intelligence sources",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			components, _, cleanup, err := initComponents(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var sources []core.ThreatIntelSource
			withSpinner("Loading threat intel sources...", func() {
				sources = components.ThreatIntel.GetSources(ctx)
			})
			sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

			if ok, err := structured(cmd.OutOrStdout(), sources); ok {
				return err
			}
			renderThreatIntelTable(cmd.OutOrStdout(), sources)
			return nil
		},
	}
}

func filterByDetector[T any](items []T, detectorID string, id func(T) string) []T {
	if detectorID == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if id(it) == detectorID {
			out = append(out, it)
		}
	}
	return out
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
