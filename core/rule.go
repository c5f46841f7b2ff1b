package core

// RuleTag is a single rule tag as returned by the rules search
type RuleTag struct {
	Value string `json:"value" msgpack:"value"`
}

// Rule holds detection-logic metadata used to enrich findings and alerts
type Rule struct {
	ID          string    `json:"id" msgpack:"id"`
	Title       string    `json:"title" msgpack:"title"`
	Level       string    `json:"level" msgpack:"level"`
	Category    string    `json:"category" msgpack:"category"`
	Description string    `json:"description,omitempty" msgpack:"description,omitempty"`
	Tags        []RuleTag `json:"tags,omitempty" msgpack:"tags,omitempty"`
	Author      string    `json:"author,omitempty" msgpack:"author,omitempty"`
	Status      string    `json:"status,omitempty" msgpack:"status,omitempty"`
	PrePackaged bool      `json:"pre_packaged" msgpack:"pre_packaged"`
}

// RuleHit is a single search hit returned by the rules search
type RuleHit struct {
	ID     string `json:"_id"`
	Source Rule   `json:"_source"`
}

// Rule returns the hit's rule with its id populated from the hit
func (h RuleHit) Rule(prePackaged bool) Rule {
	r := h.Source
	if r.ID == "" {
		r.ID = h.ID
	}
	r.PrePackaged = prePackaged
	if h.Source.Tags != nil {
		r.Tags = append([]RuleTag(nil), h.Source.Tags...)
	}
	return r
}

// TagValues returns the plain tag strings
func (r Rule) TagValues() []string {
	out := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		out = append(out, t.Value)
	}
	return out
}

// RuleLookup indexes rules by id. It is rebuilt on each refresh cycle.
type RuleLookup map[string]Rule

// Merge adds every rule from other, overwriting duplicates
func (l RuleLookup) Merge(other RuleLookup) {
	for id, r := range other {
		l[id] = r
	}
}
