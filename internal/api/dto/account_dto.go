package dto

import (
	"time"

	"github.com/revmak/marketplace-api/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsSeller bool   `json:"isSeller"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateStatusRequest toggles an account.
type UpdateStatusRequest struct {
	Active *bool `json:"active"`
}

// UpdateRoleRequest assigns a role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"active"`
	IsSeller  bool        `json:"isSeller"`
	CreatedAt time.Time   `json:"created_at"`
}

// SessionResponse reports advisory token lifetime information.
type SessionResponse struct {
	AccountID        string      `json:"account_id"`
	Role             domain.Role `json:"role"`
	RemainingMinutes int         `json:"remaining_minutes"`
	ExpiringSoon     bool        `json:"expiring_soon"`
}

// NewAccountResponse maps a domain account to its response.
func NewAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Role:      account.Role,
		Active:    account.Active,
		IsSeller:  account.IsSeller,
		CreatedAt: account.CreatedAt,
	}
}
