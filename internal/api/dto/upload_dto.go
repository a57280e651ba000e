package dto

import (
	"time"

	"github.com/revmak/marketplace-api/internal/domain"
)

// UploadResponse describes a stored file.
type UploadResponse struct {
	URL          string    `json:"url"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MIMEType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// NewUploadResponse maps a stored file to its response.
func NewUploadResponse(file *domain.StoredFile) UploadResponse {
	return UploadResponse{
		URL:          file.Path,
		Filename:     file.Name,
		OriginalName: file.OriginalName,
		MIMEType:     file.MIMEType,
		SizeBytes:    file.SizeBytes,
		UploadedAt:   file.StoredAt,
	}
}
