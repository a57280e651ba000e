package handlers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/revmak/marketplace-api/internal/api/dto"
	"github.com/revmak/marketplace-api/internal/auth"
	"github.com/revmak/marketplace-api/internal/domain"
	"github.com/revmak/marketplace-api/internal/upload"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

// FileStore persists validated uploads.
type FileStore interface {
	Save(ctx context.Context, ownerID string, file *multipart.FileHeader) (*domain.StoredFile, error)
}

// UploadHandler accepts single image uploads.
type UploadHandler struct {
	policy upload.Policy
	store  FileStore
}

// NewUploadHandler constructs handler.
func NewUploadHandler(policy upload.Policy, store FileStore) *UploadHandler {
	return &UploadHandler{policy: policy, store: store}
}

// Upload handles POST /api/upload. Errors are classified by the upload
// classifier wrapping this route.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("")
	}

	file, err := h.policy.FromRequest(c)
	if err != nil {
		return err
	}

	stored, err := h.store.Save(c.UserContext(), identity.AccountID, file)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUploadResponse(stored)})
}
