package models

import "time"

// AdmissionEvent is published to Kafka and the live feed after an attempt is recorded.
type AdmissionEvent struct {
	EventID    string    `json:"event_id"`
	PassNumber string    `json:"tkt_number"`
	Result     Result    `json:"result"`
	Comment    string    `json:"comment"`
	IsReentry  bool      `json:"is_reentry"`
	EntryLogID int64     `json:"entry_log_id"`
	EntryTime  time.Time `json:"entry_time"`
}

func NewAdmissionEvent(eventID string, log *EntryLog) AdmissionEvent {
	return AdmissionEvent{
		EventID:    eventID,
		PassNumber: log.PassNumber,
		Result:     log.Result,
		Comment:    log.Comment,
		IsReentry:  log.IsReentry,
		EntryLogID: log.ID,
		EntryTime:  log.EntryTime,
	}
}
