package domain

import "time"

// Notification is the run summary handed to the notifier after every
// ingestion run, successful or not.
type Notification struct {
	RunID    string    `json:"runId"`
	Facility string    `json:"facility"`
	Status   string    `json:"status"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sentAt"`
}
