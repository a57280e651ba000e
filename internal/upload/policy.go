// Package upload validates multipart image uploads and folds every failure on
// an upload request into a single classified error.
package upload

import (
	"errors"
	"mime"
	"mime/multipart"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/revmak/marketplace-api/internal/config"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

// Policy describes what an acceptable upload looks like.
type Policy struct {
	FieldName         string
	MaxSizeBytes      int64
	MaxFilenameLength int
	AllowedMIMETypes  []string
}

// NewPolicy builds a policy from configuration.
func NewPolicy(cfg config.UploadConfig) Policy {
	allowed := make([]string, 0, len(cfg.AllowedMIMETypes))
	for _, m := range cfg.AllowedMIMETypes {
		allowed = append(allowed, strings.ToLower(m))
	}
	return Policy{
		FieldName:         cfg.FieldName,
		MaxSizeBytes:      cfg.MaxSizeBytes,
		MaxFilenameLength: cfg.MaxFilenameLength,
		AllowedMIMETypes:  allowed,
	}
}

// FromRequest parses the multipart body and returns the single validated file.
// A request without a multipart body is reported as a missing file.
func (p Policy) FromRequest(c *fiber.Ctx) (*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, violation(apperrors.KindMissingFile, map[string]any{"field": p.FieldName})
		}
		return nil, err
	}
	file, err := p.Select(form)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(file); err != nil {
		return nil, err
	}
	return file, nil
}

// Select picks the one file sent under the configured field. Files under any
// other field, or more than one file, are rejected.
func (p Policy) Select(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil || len(form.File) == 0 {
		return nil, violation(apperrors.KindMissingFile, map[string]any{"field": p.FieldName})
	}

	fields := make([]string, 0, len(form.File))
	for field, files := range form.File {
		if field != p.FieldName && len(files) > 0 {
			fields = append(fields, field)
		}
	}
	if len(fields) > 0 {
		sort.Strings(fields)
		return nil, violation(apperrors.KindUnexpectedField, map[string]any{
			"field":    fields[0],
			"expected": p.FieldName,
		})
	}

	files := form.File[p.FieldName]
	switch {
	case len(files) == 0:
		return nil, violation(apperrors.KindMissingFile, map[string]any{"field": p.FieldName})
	case len(files) > 1:
		return nil, violation(apperrors.KindUnexpectedField, map[string]any{
			"field":     p.FieldName,
			"max_files": 1,
		})
	}
	return files[0], nil
}

// Validate checks type, filename length and size, in that order.
func (p Policy) Validate(file *multipart.FileHeader) error {
	mediaType := declaredType(file)
	if !p.allows(mediaType) {
		return violation(apperrors.KindUnsupportedFileType, map[string]any{
			"allowed_types": p.AllowedMIMETypes,
			"received":      mediaType,
		})
	}
	if p.MaxFilenameLength > 0 && utf8.RuneCountInString(file.Filename) > p.MaxFilenameLength {
		return violation(apperrors.KindFilenameTooLong, map[string]any{"max_length": p.MaxFilenameLength})
	}
	if file.Size > p.MaxSizeBytes {
		return violation(apperrors.KindFileTooLarge, map[string]any{"max_bytes": p.MaxSizeBytes})
	}
	return nil
}

func (p Policy) allows(mediaType string) bool {
	for _, allowed := range p.AllowedMIMETypes {
		if allowed == mediaType {
			return true
		}
	}
	return false
}

func declaredType(file *multipart.FileHeader) string {
	raw := file.Header.Get(fiber.HeaderContentType)
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return strings.ToLower(mediaType)
}

// violation leaves the message empty; it is localized when the error is resolved.
func violation(kind apperrors.Kind, details map[string]any) error {
	return apperrors.NewKindError(kind, "", details, nil)
}
