package core

// OverviewViewModel is the aggregate read model produced by each refresh.
// Findings and Alerts are always filtered to the window active when the
// refresh completed; Detectors are not filtered.
type OverviewViewModel struct {
	Detectors []Detector    `json:"detectors"`
	Findings  []FindingItem `json:"findings"`
	Alerts    []AlertItem   `json:"alerts"`
}

// Clone returns a deep copy that shares no slices with the receiver
func (vm OverviewViewModel) Clone() OverviewViewModel {
	out := OverviewViewModel{
		Detectors: make([]Detector, len(vm.Detectors)),
		Findings:  make([]FindingItem, len(vm.Findings)),
		Alerts:    make([]AlertItem, len(vm.Alerts)),
	}
	for i, d := range vm.Detectors {
		out.Detectors[i] = d.Clone()
	}
	copy(out.Findings, vm.Findings)
	copy(out.Alerts, vm.Alerts)
	return out
}

// DetectorByID returns the detector with the given id
func (vm OverviewViewModel) DetectorByID(id string) (Detector, bool) {
	for _, d := range vm.Detectors {
		if d.ID == id {
			return d, true
		}
	}
	return Detector{}, false
}
