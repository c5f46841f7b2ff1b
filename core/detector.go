package core

import "strings"

// RuleRef references a detection rule by id inside a detector input
type RuleRef struct {
	ID string `json:"id"`
}

// DetectorInput binds source indices to the rules a detector runs
type DetectorInput struct {
	Description      string    `json:"description,omitempty"`
	Indices          []string  `json:"indices"`
	CustomRules      []RuleRef `json:"custom_rules"`
	PrePackagedRules []RuleRef `json:"pre_packaged_rules"`
}

// DetectorInputWrapper matches the backend's {"detector_input": {...}} envelope
type DetectorInputWrapper struct {
	DetectorInput DetectorInput `json:"detector_input"`
}

// SchedulePeriod is the detector run interval
type SchedulePeriod struct {
	Interval int    `json:"interval"`
	Unit     string `json:"unit"`
}

// Schedule controls how often a detector runs
type Schedule struct {
	Period SchedulePeriod `json:"period"`
}

// Trigger is an alert condition owned by a detector
type Trigger struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Severity  string   `json:"severity"`
	Types     []string `json:"types,omitempty"`
	RuleIDs   []string `json:"ids,omitempty"`
	SevLevels []string `json:"sev_levels,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Detector is a named configuration that runs rules over log indices
type Detector struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	DetectorType   string                 `json:"detector_type"`
	Enabled        bool                   `json:"enabled"`
	Schedule       Schedule               `json:"schedule"`
	Inputs         []DetectorInputWrapper `json:"inputs"`
	Triggers       []Trigger              `json:"triggers"`
	EnabledTime    Timestamp              `json:"enabled_time"`
	LastUpdateTime Timestamp              `json:"last_update_time"`
}

// DetectorHit is a single search hit returned by the detectors search
type DetectorHit struct {
	ID     string   `json:"_id"`
	Source Detector `json:"_source"`
}

// Detector returns the hit's detector with its id populated from the hit
func (h DetectorHit) Detector() Detector {
	d := h.Source.Clone()
	if d.ID == "" {
		d.ID = h.ID
	}
	return d
}

// LogType returns the detector's log type in its canonical lower-case form
func (d Detector) LogType() string {
	return strings.ToLower(d.DetectorType)
}

// RuleIDs returns every rule id referenced by the detector's inputs
func (d Detector) RuleIDs() []string {
	var ids []string
	for _, in := range d.Inputs {
		for _, r := range in.DetectorInput.CustomRules {
			ids = append(ids, r.ID)
		}
		for _, r := range in.DetectorInput.PrePackagedRules {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Clone returns a deep copy of the detector
func (d Detector) Clone() Detector {
	out := d
	if d.Inputs != nil {
		out.Inputs = make([]DetectorInputWrapper, len(d.Inputs))
		for i, in := range d.Inputs {
			cp := in.DetectorInput
			cp.Indices = cloneStrings(in.DetectorInput.Indices)
			cp.CustomRules = append([]RuleRef(nil), in.DetectorInput.CustomRules...)
			cp.PrePackagedRules = append([]RuleRef(nil), in.DetectorInput.PrePackagedRules...)
			out.Inputs[i] = DetectorInputWrapper{DetectorInput: cp}
		}
	}
	if d.Triggers != nil {
		out.Triggers = make([]Trigger, len(d.Triggers))
		for i, t := range d.Triggers {
			t.Types = cloneStrings(t.Types)
			t.RuleIDs = cloneStrings(t.RuleIDs)
			t.SevLevels = cloneStrings(t.SevLevels)
			t.Tags = cloneStrings(t.Tags)
			out.Triggers[i] = t
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
