package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/revmak/marketplace-api/internal/auth"
	"github.com/revmak/marketplace-api/internal/domain"
	"github.com/revmak/marketplace-api/internal/events"
	"github.com/revmak/marketplace-api/internal/repository"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

const minPasswordLength = 6

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	IsSeller bool
}

// Session is an issued token for an account.
type Session struct {
	Account   *domain.Account
	Token     string
	ExpiresAt time.Time
}

// AccountService coordinates registration, login and account administration.
type AccountService struct {
	accounts   repository.AccountRepository
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// NewAccountService builds the service.
func NewAccountService(
	accounts repository.AccountRepository,
	tokens *auth.TokenManager,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
	bcryptCost int,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:   accounts,
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates a new active account and issues a token for it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	role := domain.RoleUser
	if in.IsSeller {
		role = domain.RoleSeller
	}
	account := &domain.Account{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		IsSeller:     in.IsSeller,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.Event{Type: events.EventAccountRegistered, AccountID: account.ID, ActorID: account.ID})
	return s.issue(account)
}

// Login verifies credentials and issues a token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, apperrors.NewKindError(apperrors.KindInvalidCredentials, "", nil, nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.NewKindError(apperrors.KindInvalidCredentials, "", nil, nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !account.Active {
		return nil, apperrors.NewKindError(apperrors.KindAccountDeactivated, "", nil, nil)
	}
	return s.issue(account)
}

// Get returns an account by id.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, mapAccountError(err)
	}
	return account, nil
}

// SetActive activates or deactivates an account. Cached sessions of the
// account are dropped through the published event.
func (s *AccountService) SetActive(ctx context.Context, actorID, id string, active bool) (*domain.Account, error) {
	if actorID == id && !active {
		return nil, apperrors.NewValidationError("administrators cannot deactivate their own account", map[string]any{"id": id})
	}

	account, err := s.accounts.UpdateStatus(ctx, id, active)
	if err != nil {
		return nil, mapAccountError(err)
	}

	eventType := events.EventAccountActivated
	if !active {
		eventType = events.EventAccountDeactivated
	}
	s.publish(ctx, events.Event{Type: eventType, AccountID: id, ActorID: actorID})
	return account, nil
}

// ChangeRole assigns a new role to an account.
func (s *AccountService) ChangeRole(ctx context.Context, actorID, id string, role domain.Role) (*domain.Account, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role, "allowed": domain.Roles})
	}

	current, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, mapAccountError(err)
	}
	if current.Role == role {
		return current, nil
	}

	account, err := s.accounts.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, mapAccountError(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventAccountRoleChanged,
		AccountID: id,
		ActorID:   actorID,
		Payload:   events.AccountRoleChangedPayload{OldRole: current.Role, NewRole: role},
	})
	return account, nil
}

func (s *AccountService) issue(account *domain.Account) (*Session, error) {
	token, exp, err := s.tokens.GenerateToken(account.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{Account: account, Token: token, ExpiresAt: exp}, nil
}

func (s *AccountService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event", string(event.Type)),
			zap.String("account_id", event.AccountID),
			zap.Error(err),
		)
	}
}

func validateRegistration(in RegisterInput) error {
	details := map[string]any{}
	if in.Name == "" {
		details["name"] = "required"
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		details["email"] = "invalid"
	}
	if len(in.Password) < minPasswordLength {
		details["password"] = "too short"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration data", details)
	}
	return nil
}

func mapAccountError(err error) error {
	if errors.Is(err, domain.ErrAccountNotFound) {
		return apperrors.NewNotFound("account", nil)
	}
	return apperrors.NewInternalError(err)
}
