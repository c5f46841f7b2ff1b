package core

import "time"

// AlertState is the backend lifecycle state of an alert
type AlertState string

const (
	AlertStateActive       AlertState = "ACTIVE"
	AlertStateAcknowledged AlertState = "ACKNOWLEDGED"
	AlertStateCompleted    AlertState = "COMPLETED"
	AlertStateError        AlertState = "ERROR"
	AlertStateDeleted      AlertState = "DELETED"
)

// Alert is an immutable record raised when findings satisfy a trigger
type Alert struct {
	ID                   string     `json:"id"`
	DetectorID           string     `json:"detector_id"`
	TriggerID            string     `json:"trigger_id,omitempty"`
	TriggerName          string     `json:"trigger_name"`
	Severity             string     `json:"severity"`
	State                AlertState `json:"state"`
	StartTime            Timestamp  `json:"start_time"`
	LastNotificationTime Timestamp  `json:"last_notification_time"`
	EndTime              Timestamp  `json:"end_time"`
	AcknowledgedTime     *Timestamp `json:"acknowledged_time"`
	FindingIDs           []string   `json:"finding_ids,omitempty"`
	ErrorMessage         string     `json:"error_message,omitempty"`
}

// IsAcknowledged reports whether the alert carries an acknowledgement timestamp
func (a Alert) IsAcknowledged() bool {
	return a.AcknowledgedTime != nil && !a.AcknowledgedTime.IsZero()
}

// Clone returns a deep copy of the alert
func (a Alert) Clone() Alert {
	out := a
	if a.AcknowledgedTime != nil {
		ack := *a.AcknowledgedTime
		out.AcknowledgedTime = &ack
	}
	out.FindingIDs = cloneStrings(a.FindingIDs)
	return out
}

// AlertItem is the display row built from an Alert tagged with its detector's log type
type AlertItem struct {
	ID            string     `json:"id"`
	Time          time.Time  `json:"time"`
	TriggerName   string     `json:"trigger_name"`
	Severity      string     `json:"severity"`
	SeverityLabel string     `json:"severity_label"`
	State         AlertState `json:"state"`
	LogType       string     `json:"log_type"`
	DetectorID    string     `json:"detector_id"`
	Acknowledged  bool       `json:"acknowledged"`
}

// Timestamp returns the time used for window filtering
func (i AlertItem) Timestamp() time.Time {
	return i.Time
}
