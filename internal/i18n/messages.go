// Package i18n resolves user-facing error messages for the caller's language.
package i18n

import (
	"golang.org/x/text/language"

	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

var (
	portuguese = language.BrazilianPortuguese
	english    = language.English
)

// messages are keyed by external code, so kinds sharing a code share a message.
var messages = map[language.Tag]map[string]string{
	portuguese: {
		string(apperrors.KindNoCredentials):       "Você não está autenticado. Por favor, faça login.",
		apperrors.CodeInvalidToken:                "Token inválido. Por favor, faça login novamente.",
		string(apperrors.KindTokenExpired):        "Sua sessão expirou. Por favor, faça login novamente.",
		apperrors.CodeUnauthenticated:             "Não foi possível autenticar esta conta. Por favor, faça login novamente.",
		string(apperrors.KindInvalidCredentials):  "Email ou senha inválidos.",
		string(apperrors.KindForbidden):           "Você não tem permissão para acessar este recurso.",
		string(apperrors.KindFileTooLarge):        "Arquivo muito grande.",
		string(apperrors.KindUnsupportedFileType): "Tipo de arquivo não suportado. Apenas imagens JPEG, PNG, GIF e WebP são permitidas.",
		string(apperrors.KindFilenameTooLong):     "Nome do arquivo muito longo.",
		string(apperrors.KindUnexpectedField):     "Campo de arquivo inválido ou múltiplos arquivos enviados.",
		string(apperrors.KindMissingFile):         "Nenhum arquivo enviado.",
		string(apperrors.KindRateLimited):         "Muitas requisições. Tente novamente mais tarde.",
		string(apperrors.KindValidation):          "Dados inválidos.",
		string(apperrors.KindNotFound):            "Recurso não encontrado.",
		string(apperrors.KindConflict):            "O recurso já existe.",
		apperrors.CodeInternal:                    "Erro no servidor. Tente novamente mais tarde.",
	},
	english: {
		string(apperrors.KindNoCredentials):       "You are not authenticated. Please log in.",
		apperrors.CodeInvalidToken:                "Invalid token. Please log in again.",
		string(apperrors.KindTokenExpired):        "Your session has expired. Please log in again.",
		apperrors.CodeUnauthenticated:             "This account could not be authenticated. Please log in again.",
		string(apperrors.KindInvalidCredentials):  "Invalid email or password.",
		string(apperrors.KindForbidden):           "You do not have permission to access this resource.",
		string(apperrors.KindFileTooLarge):        "File too large.",
		string(apperrors.KindUnsupportedFileType): "Unsupported file type. Only JPEG, PNG, GIF and WebP images are allowed.",
		string(apperrors.KindFilenameTooLong):     "File name too long.",
		string(apperrors.KindUnexpectedField):     "Invalid file field or more than one file sent.",
		string(apperrors.KindMissingFile):         "No file was sent.",
		string(apperrors.KindRateLimited):         "Too many requests. Please try again later.",
		string(apperrors.KindValidation):          "Invalid data.",
		string(apperrors.KindNotFound):            "Resource not found.",
		string(apperrors.KindConflict):            "The resource already exists.",
		apperrors.CodeInternal:                    "Server error. Please try again later.",
	},
}

// Catalog picks messages for an Accept-Language header, falling back to a default locale.
type Catalog struct {
	matcher   language.Matcher
	supported []language.Tag
	fallback  language.Tag
}

// NewCatalog builds a catalog whose fallback is the given BCP 47 locale.
func NewCatalog(defaultLocale string) *Catalog {
	fallback := portuguese
	if tag, err := language.Parse(defaultLocale); err == nil {
		if base, _ := tag.Base(); base.String() == "en" {
			fallback = english
		}
	}
	supported := []language.Tag{portuguese, english}
	if fallback == english {
		supported = []language.Tag{english, portuguese}
	}
	return &Catalog{matcher: language.NewMatcher(supported), supported: supported, fallback: fallback}
}

// Message returns the localized message for kind.
func (c *Catalog) Message(acceptLanguage string, kind apperrors.Kind) string {
	tag := c.resolve(acceptLanguage)
	code := kind.ExternalCode()
	if msg, ok := messages[tag][code]; ok {
		return msg
	}
	if msg, ok := messages[c.fallback][code]; ok {
		return msg
	}
	return messages[c.fallback][apperrors.CodeInternal]
}

// Error builds a DomainError for kind carrying the localized message.
func (c *Catalog) Error(acceptLanguage string, kind apperrors.Kind, details map[string]any, cause error) *apperrors.DomainError {
	return apperrors.NewKindError(kind, c.Message(acceptLanguage, kind), details, cause)
}

func (c *Catalog) resolve(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return c.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return c.fallback
	}
	_, index, confidence := c.matcher.Match(prefs...)
	if confidence == language.No {
		return c.fallback
	}
	return c.supported[index]
}
