package overview

import (
	"sort"
	"time"

	"secanalytics/core"
)

// Summary sizes
const (
	TopItemsLimit    = 10
	MaxHistogramBins = 200
)

// Bucket counts items of one group inside a histogram interval
type Bucket struct {
	Start time.Time `json:"start"`
	Group string    `json:"group"`
	Count int       `json:"count"`
}

// RuleFrequency counts findings per rule
type RuleFrequency struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// DetectorCounts summarises the detector list
type DetectorCounts struct {
	Total     int            `json:"total"`
	Enabled   int            `json:"enabled"`
	Disabled  int            `json:"disabled"`
	ByLogType map[string]int `json:"by_log_type"`
}

// Summary is the chart-ready digest of a view-model
type Summary struct {
	Interval          time.Duration      `json:"interval"`
	FindingsHistogram []Bucket           `json:"findings_histogram"`
	AlertsHistogram   []Bucket           `json:"alerts_histogram"`
	RecentAlerts      []core.AlertItem   `json:"recent_alerts"`
	RecentFindings    []core.FindingItem `json:"recent_findings"`
	TopRules          []RuleFrequency    `json:"top_rules"`
	Detectors         DetectorCounts     `json:"detectors"`
}

// DefaultInterval picks a histogram interval that splits w into roughly 30 bins
func DefaultInterval(w core.TimeWindow) time.Duration {
	candidates := []time.Duration{
		time.Minute, 5 * time.Minute, 15 * time.Minute, 30 * time.Minute,
		time.Hour, 3 * time.Hour, 12 * time.Hour, 24 * time.Hour, 7 * 24 * time.Hour,
	}
	target := w.Duration() / 30
	for _, c := range candidates {
		if c >= target {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

// BuildSummary derives histograms and top lists from vm. Findings are
// grouped by log type and alerts by severity label. A non-positive
// interval falls back to DefaultInterval(w); intervals that would produce
// more than MaxHistogramBins bins over w are widened.
func BuildSummary(vm core.OverviewViewModel, w core.TimeWindow, interval time.Duration) Summary {
	if interval <= 0 {
		interval = DefaultInterval(w)
	}
	if d := w.Duration(); d > 0 && d/interval > MaxHistogramBins {
		interval = d / MaxHistogramBins
	}

	s := Summary{
		Interval:          interval,
		FindingsHistogram: histogram(vm.Findings, interval, func(f core.FindingItem) string { return f.LogType }),
		AlertsHistogram:   histogram(vm.Alerts, interval, func(a core.AlertItem) string { return a.SeverityLabel }),
		RecentAlerts:      mostRecent(vm.Alerts, TopItemsLimit),
		RecentFindings:    mostRecent(vm.Findings, TopItemsLimit),
		TopRules:          topRules(vm.Findings, TopItemsLimit),
		Detectors:         countDetectors(vm.Detectors),
	}
	return s
}

func histogram[T timestamped](items []T, interval time.Duration, group func(T) string) []Bucket {
	type key struct {
		start time.Time
		group string
	}
	counts := make(map[key]int)
	for _, item := range items {
		k := key{start: item.Timestamp().UTC().Truncate(interval), group: group(item)}
		counts[k]++
	}

	out := make([]Bucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, Bucket{Start: k.start, Group: k.group, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Group < out[j].Group
	})
	return out
}

func mostRecent[T timestamped](items []T, limit int) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp().After(out[j].Timestamp())
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []T{}
	}
	return out
}

func topRules(findings []core.FindingItem, limit int) []RuleFrequency {
	byRule := make(map[string]*RuleFrequency)
	for _, f := range findings {
		if f.IsThreatIntelOnly || f.RuleID == "" {
			continue
		}
		rf, ok := byRule[f.RuleID]
		if !ok {
			rf = &RuleFrequency{RuleID: f.RuleID, RuleName: f.RuleName, Severity: f.RuleSeverity}
			byRule[f.RuleID] = rf
		}
		rf.Count++
	}

	out := make([]RuleFrequency, 0, len(byRule))
	for _, rf := range byRule {
		out = append(out, *rf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].RuleID < out[j].RuleID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func countDetectors(detectors []core.Detector) DetectorCounts {
	c := DetectorCounts{Total: len(detectors), ByLogType: make(map[string]int)}
	for _, d := range detectors {
		if d.Enabled {
			c.Enabled++
		} else {
			c.Disabled++
		}
		c.ByLogType[d.LogType()]++
	}
	return c
}
