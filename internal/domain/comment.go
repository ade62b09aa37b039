package domain

import "time"

// Comment is a note on a ticket. Internal comments are hidden from COMMON users.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorName string
	Text       string
	IsInternal bool
	CreatedAt  time.Time
}

// Attachment stores metadata for content kept in object storage.
type Attachment struct {
	ID         string
	TicketID   string
	UploaderID string
	FileName   string
	URL        string
	StorageKey string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
