package amqp

import (
	"encoding/json"
	"time"
)

// Refresh reasons carried on the queue.
const (
	ReasonAppend = "append"
	ReasonStale  = "stale"
	ReasonManual = "manual"
)

// ReportRefreshMessage asks the worker to re-export one month's report.
// It carries only the month key; the worker reads the table itself.
type ReportRefreshMessage struct {
	Month     string    `json:"month"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportRefreshMessage(month, reason string) *ReportRefreshMessage {
	return &ReportRefreshMessage{
		Month:     month,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func ReportRefreshMessageFromJSON(data []byte) (*ReportRefreshMessage, error) {
	var msg ReportRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
