package core

import "time"

// FindingQuery is a rule match recorded on a finding
type FindingQuery struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Query string   `json:"query,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// CorrelatedFinding references another finding linked by the correlation engine
type CorrelatedFinding struct {
	FindingID    string  `json:"finding"`
	DetectorType string  `json:"detector_type"`
	Score        float64 `json:"score"`
}

// Finding is an immutable record of a detection event
type Finding struct {
	ID            string              `json:"id"`
	DetectorID    string              `json:"detectorId"`
	Index         string              `json:"index"`
	Queries       []FindingQuery      `json:"queries"`
	RelatedDocIDs []string            `json:"related_doc_ids,omitempty"`
	Timestamp     Timestamp           `json:"timestamp"`
	Correlations  []CorrelatedFinding `json:"correlations,omitempty"`

	// RuleSeverity is a previously computed severity annotation, if any
	RuleSeverity string `json:"ruleSeverity,omitempty"`
}

// PrimaryRuleID returns the id of the first matched rule, or "" if none
func (f Finding) PrimaryRuleID() string {
	if len(f.Queries) == 0 {
		return ""
	}
	return f.Queries[0].ID
}

// IsThreatIntelOnly reports whether every matched query came from a threat-intel feed
func (f Finding) IsThreatIntelOnly() bool {
	if len(f.Queries) == 0 {
		return false
	}
	for _, q := range f.Queries {
		if !hasTag(q.Tags, ThreatIntelTag) {
			return false
		}
	}
	return true
}

// RuleIDs returns the ids of every matched rule, skipping threat-intel queries
func (f Finding) RuleIDs() []string {
	ids := make([]string, 0, len(f.Queries))
	for _, q := range f.Queries {
		if q.ID == "" || hasTag(q.Tags, ThreatIntelTag) {
			continue
		}
		ids = append(ids, q.ID)
	}
	return ids
}

// Clone returns a deep copy of the finding
func (f Finding) Clone() Finding {
	out := f
	if f.Queries != nil {
		out.Queries = make([]FindingQuery, len(f.Queries))
		for i, q := range f.Queries {
			q.Tags = cloneStrings(q.Tags)
			out.Queries[i] = q
		}
	}
	out.RelatedDocIDs = cloneStrings(f.RelatedDocIDs)
	if f.Correlations != nil {
		out.Correlations = append([]CorrelatedFinding(nil), f.Correlations...)
	}
	return out
}

// FindingItem is the display row built from a Finding joined with its detector and rule
type FindingItem struct {
	ID                string    `json:"id"`
	Time              time.Time `json:"time"`
	FindingName       string    `json:"finding_name"`
	DetectorID        string    `json:"detector_id"`
	DetectorName      string    `json:"detector_name"`
	LogType           string    `json:"log_type"`
	RuleID            string    `json:"rule_id"`
	RuleName          string    `json:"rule_name"`
	RuleSeverity      string    `json:"rule_severity"`
	IsThreatIntelOnly bool      `json:"is_threat_intel_only"`
	CorrelationCount  int       `json:"correlation_count"`
}

// Timestamp returns the time used for window filtering
func (i FindingItem) Timestamp() time.Time {
	return i.Time
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
