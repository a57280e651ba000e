// Package storage persists uploaded files.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/revmak/marketplace-api/internal/domain"
)

var unsafeNameChars = regexp.MustCompile(`[^\w\s.-]`)

// SanitizeFilename replaces characters outside word, space, dot and dash with underscores.
func SanitizeFilename(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// Disk stores files under a root directory, one subdirectory per owner.
type Disk struct {
	fs           afero.Fs
	root         string
	publicPrefix string
	newName      func() string
	now          func() time.Time
}

// NewDisk constructs disk storage on fs.
func NewDisk(fs afero.Fs, root, publicPrefix string) *Disk {
	return &Disk{
		fs:           fs,
		root:         root,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		newName:      uuid.NewString,
		now:          time.Now,
	}
}

// Save copies the upload to a temporary file in the owner's directory and
// renames it into place. Nothing is left behind on failure.
func (d *Disk) Save(ctx context.Context, ownerID string, file *multipart.FileHeader) (*domain.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ownerDir := OwnerDir(ownerID)
	dir := filepath.Join(d.root, ownerDir)
	if err := d.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create owner dir: %w", err)
	}

	original := SanitizeFilename(file.Filename)
	name := d.newName() + strings.ToLower(filepath.Ext(original))

	tmp, err := afero.TempFile(d.fs, dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = d.fs.Remove(tmpName)
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = d.fs.Remove(tmpName)
		return nil, err
	}
	if err := d.fs.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		_ = d.fs.Remove(tmpName)
		return nil, fmt.Errorf("move upload into place: %w", err)
	}

	return &domain.StoredFile{
		OwnerID:      ownerID,
		Name:         name,
		OriginalName: original,
		MIMEType:     file.Header.Get("Content-Type"),
		SizeBytes:    written,
		Path:         path.Join(d.publicPrefix, ownerDir, name),
		StoredAt:     d.now(),
	}, nil
}

// OwnerDir is the per-owner directory name.
func OwnerDir(ownerID string) string {
	return "user_" + SanitizeFilename(ownerID)
}
