package dto

import (
	"time"

	"github.com/supersunho/senseinfo/internal/domain/account/entities"
)

// Login flow statuses returned to clients
const (
	StatusCodeSent         = "code_sent"
	StatusPasswordRequired = "password_required"
	StatusAuthorized       = "authorized"
	StatusLoggedOut        = "logged_out"
)

// SendCodeRequest starts a phone login
type SendCodeRequest struct {
	Phone string `json:"phone"`
}

// VerifyCodeRequest submits the confirmation code
type VerifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// PasswordRequest submits the 2FA cloud password
type PasswordRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// AuthStatusResponse reports login flow progress
type AuthStatusResponse struct {
	Status  string           `json:"status"`
	Phone   string           `json:"phone"`
	Account *AccountResponse `json:"account,omitempty"`
}

// AccountResponse is the public view of an account
type AccountResponse struct {
	ID              uint       `json:"id"`
	TelegramID      *int64     `json:"telegram_id,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Username        string     `json:"username"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	IsAuthenticated bool       `json:"is_authenticated"`
	IsActive        bool       `json:"is_active"`
	MessagesToday   int64      `json:"messages_today"`
	LastAuthAt      *time.Time `json:"last_auth_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToAccountResponse converts an entity to its public view
func ToAccountResponse(a *entities.Account) *AccountResponse {
	resp := &AccountResponse{
		ID:              a.ID,
		TelegramID:      a.TelegramID,
		Username:        a.Username,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		IsAuthenticated: a.IsAuthenticated,
		IsActive:        a.IsActive,
		MessagesToday:   a.MessagesToday,
		LastAuthAt:      a.LastAuthAt,
		CreatedAt:       a.CreatedAt,
	}
	if a.Phone != nil {
		resp.Phone = *a.Phone
	}
	return resp
}

// ToAccountResponses converts a slice of entities
func ToAccountResponses(accounts []entities.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, *ToAccountResponse(&accounts[i]))
	}
	return out
}
