// Package notification delivers outbound email through a Redis-backed queue.
package notification

import (
	"encoding/json"
	"time"
)

// Template names an email layout under templates/.
type Template string

const (
	TemplateTicketCreated  Template = "ticket_created"
	TemplateTicketAssigned Template = "ticket_assigned"
	TemplateStatusChanged  Template = "status_changed"
	TemplateCommentAdded   Template = "comment_added"
	TemplatePasswordReset  Template = "password_reset"
)

// Job is one email waiting to be rendered and sent.
type Job struct {
	ID         string            `json:"id"`
	Template   Template          `json:"template"`
	To         []string          `json:"to"`
	Data       map[string]string `json:"data"`
	Attempts   int               `json:"attempts"`
	LastError  string            `json:"last_error,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

func encodeJob(job Job) (string, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeJob(raw string) (Job, error) {
	var job Job
	err := json.Unmarshal([]byte(raw), &job)
	return job, err
}
