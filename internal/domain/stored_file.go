package domain

import "time"

// StoredFile describes an upload committed to storage.
type StoredFile struct {
	OwnerID      string
	Name         string
	OriginalName string
	MIMEType     string
	SizeBytes    int64
	Path         string
	StoredAt     time.Time
}
