package business

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/domain/account/dto"
	"github.com/supersunho/senseinfo/internal/domain/account/entities"
	accounterrors "github.com/supersunho/senseinfo/internal/domain/account/errors"
)

type stubAccountRepo struct {
	byPhone map[string]*entities.Account
	byID    map[uint]*entities.Account
	nextID  uint
	cleared []uint
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{
		byPhone: make(map[string]*entities.Account),
		byID:    make(map[uint]*entities.Account),
		nextID:  1,
	}
}

func (r *stubAccountRepo) Create(ctx context.Context, account *entities.Account) error {
	account.ID = r.nextID
	r.nextID++
	account.IsActive = true
	r.byID[account.ID] = account
	if account.Phone != nil {
		r.byPhone[*account.Phone] = account
	}
	return nil
}

func (r *stubAccountRepo) GetByID(ctx context.Context, id uint) (*entities.Account, error) {
	account, exists := r.byID[id]
	if !exists {
		return nil, accounterrors.ErrAccountNotFound
	}
	return account, nil
}

func (r *stubAccountRepo) GetByPhone(ctx context.Context, phone string) (*entities.Account, error) {
	account, exists := r.byPhone[phone]
	if !exists {
		return nil, accounterrors.ErrAccountNotFound
	}
	return account, nil
}

func (r *stubAccountRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*entities.Account, error) {
	return nil, accounterrors.ErrAccountNotFound
}

func (r *stubAccountRepo) List(ctx context.Context) ([]entities.Account, error) {
	return nil, nil
}

func (r *stubAccountRepo) Update(ctx context.Context, account *entities.Account) error {
	r.byID[account.ID] = account
	return nil
}

func (r *stubAccountRepo) SetActive(ctx context.Context, id uint, active bool) error {
	account, exists := r.byID[id]
	if !exists {
		return accounterrors.ErrAccountNotFound
	}
	account.IsActive = active
	return nil
}

func (r *stubAccountRepo) ClearSession(ctx context.Context, id uint) error {
	account, exists := r.byID[id]
	if !exists {
		return accounterrors.ErrAccountNotFound
	}
	account.IsAuthenticated = false
	account.SessionData = nil
	r.cleared = append(r.cleared, id)
	return nil
}

func (r *stubAccountRepo) Count(ctx context.Context) (int64, int64, error) {
	return int64(len(r.byID)), 0, nil
}

type stubLoginFlow struct {
	sendCodeErr  error
	verifyErr    error
	passwordErr  error
	identity     *domain.Identity
	sentCodeFor  []string
	verifiedWith string
}

func (f *stubLoginFlow) SendCode(ctx context.Context, accountID uint, phone string) error {
	f.sentCodeFor = append(f.sentCodeFor, phone)
	return f.sendCodeErr
}

func (f *stubLoginFlow) VerifyCode(ctx context.Context, phone, code string) (*domain.Identity, error) {
	f.verifiedWith = code
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.identity, nil
}

func (f *stubLoginFlow) SubmitPassword(ctx context.Context, phone, password string) (*domain.Identity, error) {
	if f.passwordErr != nil {
		return nil, f.passwordErr
	}
	return f.identity, nil
}

func (f *stubLoginFlow) Cancel(phone string) {}

type stubConnManager struct {
	released []uint
}

func (m *stubConnManager) Acquire(ctx context.Context, accountID uint) (domain.Conn, error) {
	return nil, domain.ErrNotAuthenticated
}

func (m *stubConnManager) Release(ctx context.Context, accountID uint) {
	m.released = append(m.released, accountID)
}

func (m *stubConnManager) ReleaseAll(ctx context.Context) {}

func (m *stubConnManager) ActiveCount() int { return 0 }

func newAccountFixture() (*AccountUseCase, *stubAccountRepo, *stubLoginFlow, *stubConnManager) {
	repo := newStubAccountRepo()
	flow := &stubLoginFlow{identity: &domain.Identity{TelegramID: 42, Username: "tester"}}
	conns := &stubConnManager{}
	uc := NewAccountUseCase(repo, flow, conns, zerolog.Nop())
	return uc, repo, flow, conns
}

func TestStartLoginCreatesAccountOnFirstContact(t *testing.T) {
	uc, repo, flow, _ := newAccountFixture()

	resp, err := uc.StartLogin(context.Background(), " +15551234567 ")
	if err != nil {
		t.Fatalf("StartLogin: %v", err)
	}
	if resp.Status != dto.StatusCodeSent {
		t.Errorf("status = %q, want %q", resp.Status, dto.StatusCodeSent)
	}
	if _, exists := repo.byPhone["+15551234567"]; !exists {
		t.Error("account row not created for trimmed phone")
	}
	if len(flow.sentCodeFor) != 1 {
		t.Errorf("SendCode called %d times, want 1", len(flow.sentCodeFor))
	}

	// A second start reuses the row instead of creating another.
	if _, err := uc.StartLogin(context.Background(), "+15551234567"); err != nil {
		t.Fatalf("second StartLogin: %v", err)
	}
	if len(repo.byID) != 1 {
		t.Errorf("accounts = %d, want 1", len(repo.byID))
	}
}

func TestStartLoginRejectsInvalidPhone(t *testing.T) {
	uc, _, _, _ := newAccountFixture()

	for _, phone := range []string{"", "15551234567", "+123", "+1555abc4567"} {
		if _, err := uc.StartLogin(context.Background(), phone); !errors.Is(err, accounterrors.ErrPhoneInvalid) {
			t.Errorf("StartLogin(%q) err = %v, want ErrPhoneInvalid", phone, err)
		}
	}
}

func TestStartLoginRejectsInactiveAccount(t *testing.T) {
	uc, repo, flow, _ := newAccountFixture()

	phone := "+15551234567"
	account := &entities.Account{Phone: &phone}
	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("Create: %v", err)
	}
	account.IsActive = false

	if _, err := uc.StartLogin(context.Background(), phone); !errors.Is(err, accounterrors.ErrAccountInactive) {
		t.Fatalf("err = %v, want ErrAccountInactive", err)
	}
	if len(flow.sentCodeFor) != 0 {
		t.Error("SendCode must not run for an inactive account")
	}
}

func TestVerifyCodeCompletesLogin(t *testing.T) {
	uc, repo, _, _ := newAccountFixture()

	if _, err := uc.StartLogin(context.Background(), "+15551234567"); err != nil {
		t.Fatalf("StartLogin: %v", err)
	}

	resp, err := uc.VerifyCode(context.Background(), "+15551234567", "12345")
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if resp.Status != dto.StatusAuthorized {
		t.Errorf("status = %q, want %q", resp.Status, dto.StatusAuthorized)
	}

	account := repo.byPhone["+15551234567"]
	if !account.IsAuthenticated {
		t.Error("account not marked authenticated")
	}
	if account.TelegramID == nil || *account.TelegramID != 42 {
		t.Error("platform identity not persisted")
	}
}

func TestVerifyCodeEscalatesToPassword(t *testing.T) {
	uc, repo, flow, _ := newAccountFixture()
	flow.verifyErr = accounterrors.ErrPasswordRequired

	if _, err := uc.StartLogin(context.Background(), "+15551234567"); err != nil {
		t.Fatalf("StartLogin: %v", err)
	}

	resp, err := uc.VerifyCode(context.Background(), "+15551234567", "12345")
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if resp.Status != dto.StatusPasswordRequired {
		t.Errorf("status = %q, want %q", resp.Status, dto.StatusPasswordRequired)
	}
	if repo.byPhone["+15551234567"].IsAuthenticated {
		t.Error("account must not authenticate before the password step")
	}

	flow.verifyErr = nil
	resp, err = uc.SubmitPassword(context.Background(), "+15551234567", "hunter2")
	if err != nil {
		t.Fatalf("SubmitPassword: %v", err)
	}
	if resp.Status != dto.StatusAuthorized {
		t.Errorf("status after password = %q, want %q", resp.Status, dto.StatusAuthorized)
	}
}

func TestVerifyCodeRejectsEmptyCode(t *testing.T) {
	uc, _, _, _ := newAccountFixture()

	if _, err := uc.VerifyCode(context.Background(), "+15551234567", "  "); !errors.Is(err, accounterrors.ErrCodeInvalid) {
		t.Fatalf("err = %v, want ErrCodeInvalid", err)
	}
}

func TestLogoutReleasesConnectionAndClearsCredential(t *testing.T) {
	uc, repo, _, conns := newAccountFixture()

	if _, err := uc.StartLogin(context.Background(), "+15551234567"); err != nil {
		t.Fatalf("StartLogin: %v", err)
	}
	if _, err := uc.VerifyCode(context.Background(), "+15551234567", "12345"); err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}

	account := repo.byPhone["+15551234567"]
	resp, err := uc.Logout(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if resp.Status != dto.StatusLoggedOut {
		t.Errorf("status = %q, want %q", resp.Status, dto.StatusLoggedOut)
	}
	if len(conns.released) != 1 || conns.released[0] != account.ID {
		t.Errorf("connection not released: %v", conns.released)
	}
	if account.IsAuthenticated {
		t.Error("credential not cleared")
	}
}

func TestSetActiveFalseReleasesConnection(t *testing.T) {
	uc, repo, _, conns := newAccountFixture()

	phone := "+15551234567"
	account := &entities.Account{Phone: &phone}
	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := uc.SetActive(context.Background(), account.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if len(conns.released) != 1 {
		t.Error("deactivation must release the connection")
	}

	conns.released = nil
	if err := uc.SetActive(context.Background(), account.ID, true); err != nil {
		t.Fatalf("SetActive true: %v", err)
	}
	if len(conns.released) != 0 {
		t.Error("re-activation must not release the connection")
	}
}
