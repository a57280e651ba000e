package upload

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/revmak/marketplace-api/internal/i18n"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

// Classifier reduces the failures of an upload request to the one error the
// client sees: authentication first, then file validation, then anything
// else as an opaque storage error.
type Classifier struct {
	catalog *i18n.Catalog
	logger  *zap.Logger
}

// NewClassifier constructs a classifier.
func NewClassifier(catalog *i18n.Catalog, logger *zap.Logger) *Classifier {
	if catalog == nil {
		catalog = i18n.NewCatalog("pt-BR")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{catalog: catalog, logger: logger}
}

// Resolve returns the highest-precedence error among errs, or nil when all are nil.
func (cl *Classifier) Resolve(acceptLanguage string, errs ...error) *apperrors.DomainError {
	var (
		chosen   *apperrors.DomainError
		original error
		best     int
	)
	for _, err := range errs {
		if err == nil {
			continue
		}
		domainErr := apperrors.ToDomainError(err)
		if r := rank(domainErr.Kind); chosen == nil || r > best {
			chosen, original, best = domainErr, err, r
		}
	}
	if chosen == nil {
		return nil
	}

	switch {
	case chosen.Kind == "" || chosen.Kind == apperrors.KindInternal:
		cl.logger.Error("upload failed", zap.Error(original))
		return cl.catalog.Error(acceptLanguage, apperrors.KindOpaqueStorageError, nil, original)
	case chosen.Kind.Sensitive():
		// Already classified upstream; keep the kind so logs name the real failure.
		cause := chosen.Err
		if cause == nil {
			cause = original
		}
		return cl.catalog.Error(acceptLanguage, chosen.Kind, nil, cause)
	}
	if chosen.Message == "" {
		return cl.catalog.Error(acceptLanguage, chosen.Kind, chosen.Details, chosen.Err)
	}
	return chosen
}

// Middleware wraps the rest of the upload chain so every error leaving it is classified.
func (cl *Classifier) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return cl.Resolve(c.Get(fiber.HeaderAcceptLanguage), err)
		}
		return nil
	}
}

func rank(kind apperrors.Kind) int {
	switch kind.Family() {
	case apperrors.FamilyAuth:
		return 3
	case apperrors.FamilyFile:
		return 2
	case apperrors.FamilyGeneric:
		return 1
	default:
		return 0
	}
}
