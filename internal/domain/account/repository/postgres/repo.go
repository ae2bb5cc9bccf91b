package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/domain/account/deps"
	"github.com/supersunho/senseinfo/internal/domain/account/entities"
	accounterrors "github.com/supersunho/senseinfo/internal/domain/account/errors"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) deps.AccountRepository {
	return &accountRepository{
		db: db,
	}
}

// Create creates a new account
func (r *accountRepository) Create(ctx context.Context, account *entities.Account) error {
	result := r.db.WithContext(ctx).Create(account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return accounterrors.ErrPhoneTaken
		}
		return accounterrors.ErrDatabaseOperation
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id uint) (*entities.Account, error) {
	var account entities.Account
	result := r.db.WithContext(ctx).First(&account, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, accounterrors.ErrAccountNotFound
		}
		return nil, accounterrors.ErrDatabaseOperation
	}
	return &account, nil
}

// GetByPhone retrieves an account by phone number
func (r *accountRepository) GetByPhone(ctx context.Context, phone string) (*entities.Account, error) {
	var account entities.Account
	result := r.db.WithContext(ctx).Where("phone = ?", phone).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, accounterrors.ErrAccountNotFound
		}
		return nil, accounterrors.ErrDatabaseOperation
	}
	return &account, nil
}

// GetByTelegramID retrieves an account by its platform user ID
func (r *accountRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*entities.Account, error) {
	var account entities.Account
	result := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, accounterrors.ErrAccountNotFound
		}
		return nil, accounterrors.ErrDatabaseOperation
	}
	return &account, nil
}

// List retrieves all accounts ordered by creation time
func (r *accountRepository) List(ctx context.Context) ([]entities.Account, error) {
	var accounts []entities.Account
	result := r.db.WithContext(ctx).Order("created_at ASC").Find(&accounts)
	if result.Error != nil {
		return nil, accounterrors.ErrDatabaseOperation
	}
	return accounts, nil
}

// Update saves all fields of an existing account
func (r *accountRepository) Update(ctx context.Context, account *entities.Account) error {
	result := r.db.WithContext(ctx).Save(account)
	if result.Error != nil {
		return accounterrors.ErrDatabaseOperation
	}
	return nil
}

// SetActive toggles the account's active flag
func (r *accountRepository) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Account{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return accounterrors.ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return accounterrors.ErrAccountNotFound
	}
	return nil
}

// ClearSession drops the stored session blob and authentication flag
func (r *accountRepository) ClearSession(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"session_data":     nil,
			"is_authenticated": false,
		})
	if result.Error != nil {
		return accounterrors.ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return accounterrors.ErrAccountNotFound
	}
	return nil
}

// Count returns total and authenticated account counts
func (r *accountRepository) Count(ctx context.Context) (int64, int64, error) {
	var total, authenticated int64
	result := r.db.WithContext(ctx).Model(&entities.Account{}).Count(&total)
	if result.Error != nil {
		return 0, 0, accounterrors.ErrDatabaseOperation
	}
	result = r.db.WithContext(ctx).
		Model(&entities.Account{}).
		Where("is_authenticated = ?", true).
		Count(&authenticated)
	if result.Error != nil {
		return 0, 0, accounterrors.ErrDatabaseOperation
	}
	return total, authenticated, nil
}

// credentialSource implements domain.CredentialSource over account rows
type credentialSource struct {
	db *gorm.DB
}

// NewCredentialSource creates a credential source backed by account storage
func NewCredentialSource(db *gorm.DB) domain.CredentialSource {
	return &credentialSource{
		db: db,
	}
}

// IsAuthenticated checks whether the account holds a session credential
func (s *credentialSource) IsAuthenticated(ctx context.Context, accountID uint) (bool, error) {
	var account entities.Account
	result := s.db.WithContext(ctx).
		Select("is_authenticated", "session_data").
		First(&account, accountID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, accounterrors.ErrAccountNotFound
		}
		return false, accounterrors.ErrDatabaseOperation
	}
	return account.IsAuthenticated && len(account.SessionData) > 0, nil
}

// LoadSession returns the opaque session blob for the account
func (s *credentialSource) LoadSession(ctx context.Context, accountID uint) ([]byte, error) {
	var account entities.Account
	result := s.db.WithContext(ctx).
		Select("session_data").
		First(&account, accountID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, accounterrors.ErrAccountNotFound
		}
		return nil, accounterrors.ErrDatabaseOperation
	}
	return account.SessionData, nil
}

// StoreSession persists a refreshed session blob for the account
func (s *credentialSource) StoreSession(ctx context.Context, accountID uint, data []byte) error {
	result := s.db.WithContext(ctx).
		Model(&entities.Account{}).
		Where("id = ?", accountID).
		Update("session_data", data)
	if result.Error != nil {
		return accounterrors.ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return accounterrors.ErrAccountNotFound
	}
	return nil
}
