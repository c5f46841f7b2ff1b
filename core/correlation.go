package core

// CorrelationPair links two findings from different log types matched by a correlation rule
type CorrelationPair struct {
	Finding1 string   `json:"finding1"`
	LogType1 string   `json:"logType1"`
	Finding2 string   `json:"finding2"`
	LogType2 string   `json:"logType2"`
	Rules    []string `json:"rules,omitempty"`
}

// CorrelatedFindings is the correlation engine's answer for a single finding
type CorrelatedFindings struct {
	FindingID string              `json:"finding"`
	Findings  []CorrelatedFinding `json:"findings"`
}

// ThreatIntelSource is a configured threat-intelligence feed
type ThreatIntelSource struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Format         string    `json:"format,omitempty"`
	Description    string    `json:"description,omitempty"`
	Enabled        bool      `json:"enabled"`
	State          string    `json:"state,omitempty"`
	IOCTypes       []string  `json:"ioc_types,omitempty"`
	LastUpdateTime Timestamp `json:"last_update_time"`
	LastRefresh    Timestamp `json:"last_refreshed_time"`
}

// ThreatIntelSourceHit is a single search hit returned by the sources search
type ThreatIntelSourceHit struct {
	ID     string `json:"_id"`
	Source struct {
		Config ThreatIntelSource `json:"source_config"`
	} `json:"_source"`
}

// ThreatIntelSource returns the hit's source with its id populated from the hit
func (h ThreatIntelSourceHit) ThreatIntelSource() ThreatIntelSource {
	src := h.Source.Config
	if src.ID == "" {
		src.ID = h.ID
	}
	src.IOCTypes = cloneStrings(src.IOCTypes)
	return src
}
