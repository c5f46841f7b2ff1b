package overview

import (
	"strings"

	"secanalytics/core"
)

// BuildFindingItem joins a finding with its detector and rule lookup into a display row
func BuildFindingItem(f core.Finding, detector core.Detector, rules core.RuleLookup) core.FindingItem {
	item := core.FindingItem{
		ID:                f.ID,
		Time:              f.Timestamp.Time,
		DetectorID:        detector.ID,
		DetectorName:      detector.Name,
		LogType:           detector.LogType(),
		RuleID:            f.PrimaryRuleID(),
		RuleName:          core.EmptyDataPlaceholder,
		FindingName:       core.EmptyDataPlaceholder,
		IsThreatIntelOnly: f.IsThreatIntelOnly(),
		CorrelationCount:  len(f.Correlations),
	}
	if item.DetectorID == "" {
		item.DetectorID = f.DetectorID
	}

	var rule *core.Rule
	if r, ok := rules[item.RuleID]; ok {
		rule = &r
		if r.Title != "" {
			item.RuleName = r.Title
			item.FindingName = r.Title
		}
		if item.LogType == "" {
			item.LogType = strings.ToLower(r.Category)
		}
	}
	if item.IsThreatIntelOnly {
		item.FindingName = threatIntelName(f)
	}
	item.RuleSeverity = core.FindingSeverity(f, rule)
	return item
}

// BuildAlertItem tags an alert with its detector's log type
func BuildAlertItem(a core.Alert, detector core.Detector) core.AlertItem {
	when := a.LastNotificationTime.Time
	if when.IsZero() {
		when = a.StartTime.Time
	}
	return core.AlertItem{
		ID:            a.ID,
		Time:          when,
		TriggerName:   a.TriggerName,
		Severity:      a.Severity,
		SeverityLabel: core.AlertSeverityLabel(a.Severity),
		State:         a.State,
		LogType:       detector.LogType(),
		DetectorID:    detector.ID,
		Acknowledged:  a.IsAcknowledged(),
	}
}

// collectRuleIDs returns the union of rule ids referenced by findings
func collectRuleIDs(findings []core.Finding) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, f := range findings {
		for _, id := range f.RuleIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func threatIntelName(f core.Finding) string {
	names := make([]string, 0, len(f.Queries))
	for _, q := range f.Queries {
		if q.Name != "" {
			names = append(names, q.Name)
		}
	}
	if len(names) == 0 {
		return "Threat intel match"
	}
	return strings.Join(names, ", ")
}
