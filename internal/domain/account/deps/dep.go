package deps

import (
	"context"

	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/domain/account/entities"
)

// AccountRepository defines interface for account storage
type AccountRepository interface {
	Create(ctx context.Context, account *entities.Account) error
	GetByID(ctx context.Context, id uint) (*entities.Account, error)
	GetByPhone(ctx context.Context, phone string) (*entities.Account, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*entities.Account, error)
	List(ctx context.Context) ([]entities.Account, error)
	Update(ctx context.Context, account *entities.Account) error
	SetActive(ctx context.Context, id uint, active bool) error
	ClearSession(ctx context.Context, id uint) error
	Count(ctx context.Context) (total int64, authenticated int64, err error)
}

// LoginFlow drives the staged phone sign-in against the platform. One
// pending login exists per phone at a time; VerifyCode either completes
// it or escalates with ErrPasswordRequired when the account has 2FA.
type LoginFlow interface {
	SendCode(ctx context.Context, accountID uint, phone string) error
	VerifyCode(ctx context.Context, phone, code string) (*domain.Identity, error)
	SubmitPassword(ctx context.Context, phone, password string) (*domain.Identity, error)
	Cancel(phone string)
}
