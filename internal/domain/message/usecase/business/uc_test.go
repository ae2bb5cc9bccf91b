package business

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain/message/deps"
	"github.com/supersunho/senseinfo/internal/domain/message/entities"
	messageerrors "github.com/supersunho/senseinfo/internal/domain/message/errors"
)

type stubMessageRepo struct {
	lastFilter deps.ListFilter
	lastSince  time.Time
	messages   map[uint]*entities.StoredMessage
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{messages: make(map[uint]*entities.StoredMessage)}
}

func (r *stubMessageRepo) List(ctx context.Context, filter deps.ListFilter) ([]entities.StoredMessage, int64, error) {
	r.lastFilter = filter
	return nil, 0, nil
}

func (r *stubMessageRepo) GetByID(ctx context.Context, id uint) (*entities.StoredMessage, error) {
	msg, exists := r.messages[id]
	if !exists {
		return nil, messageerrors.ErrMessageNotFound
	}
	return msg, nil
}

func (r *stubMessageRepo) Delete(ctx context.Context, id uint) error {
	if _, exists := r.messages[id]; !exists {
		return messageerrors.ErrMessageNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *stubMessageRepo) StatsByAccount(ctx context.Context, accountID uint, since time.Time) (*deps.MessageStats, error) {
	r.lastSince = since
	return &deps.MessageStats{Total: 3, Forwarded: 1}, nil
}

func TestListClampsPagination(t *testing.T) {
	repo := newStubMessageRepo()
	uc := NewMessageUseCase(repo, zerolog.Nop())

	cases := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, defaultListLimit, 0},
		{-5, -3, defaultListLimit, 0},
		{50, 10, 50, 10},
		{1000, 0, maxListLimit, 0},
	}
	for _, tc := range cases {
		if _, _, err := uc.List(context.Background(), deps.ListFilter{Limit: tc.limit, Offset: tc.offset}); err != nil {
			t.Fatalf("List(limit %d): %v", tc.limit, err)
		}
		if repo.lastFilter.Limit != tc.wantLimit || repo.lastFilter.Offset != tc.wantOffset {
			t.Errorf("limit/offset %d/%d clamped to %d/%d, want %d/%d",
				tc.limit, tc.offset, repo.lastFilter.Limit, repo.lastFilter.Offset, tc.wantLimit, tc.wantOffset)
		}
	}
}

func TestListPreservesFilterFields(t *testing.T) {
	repo := newStubMessageRepo()
	uc := NewMessageUseCase(repo, zerolog.Nop())

	forwarded := true
	from := time.Now().Add(-time.Hour)
	filter := deps.ListFilter{
		ChannelID: 4,
		Keyword:   "urgent",
		From:      &from,
		Forwarded: &forwarded,
		Limit:     10,
	}
	if _, _, err := uc.List(context.Background(), filter); err != nil {
		t.Fatalf("List: %v", err)
	}
	got := repo.lastFilter
	if got.ChannelID != 4 || got.Keyword != "urgent" || got.From != &from || got.Forwarded != &forwarded {
		t.Errorf("filter not passed through: %+v", got)
	}
}

func TestStatsClampsDays(t *testing.T) {
	repo := newStubMessageRepo()
	uc := NewMessageUseCase(repo, zerolog.Nop())

	cases := []struct {
		days, wantDays int
	}{
		{0, defaultStatsDays},
		{-1, defaultStatsDays},
		{30, 30},
		{9999, maxStatsDays},
	}
	for _, tc := range cases {
		days, stats, err := uc.Stats(context.Background(), 1, tc.days)
		if err != nil {
			t.Fatalf("Stats(%d): %v", tc.days, err)
		}
		if days != tc.wantDays {
			t.Errorf("days %d clamped to %d, want %d", tc.days, days, tc.wantDays)
		}
		if stats.Total != 3 {
			t.Errorf("stats not returned")
		}

		wantSince := time.Now().AddDate(0, 0, -tc.wantDays)
		if diff := repo.lastSince.Sub(wantSince); diff < -time.Minute || diff > time.Minute {
			t.Errorf("since cutoff for %d days off by %v", tc.days, diff)
		}
	}
}

func TestDeleteMissingMessage(t *testing.T) {
	repo := newStubMessageRepo()
	uc := NewMessageUseCase(repo, zerolog.Nop())

	if err := uc.Delete(context.Background(), 7); !errors.Is(err, messageerrors.ErrMessageNotFound) {
		t.Fatalf("err = %v, want ErrMessageNotFound", err)
	}
}

func TestDeleteRemovesMessage(t *testing.T) {
	repo := newStubMessageRepo()
	repo.messages[7] = &entities.StoredMessage{ID: 7}
	uc := NewMessageUseCase(repo, zerolog.Nop())

	if err := uc.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := uc.Get(context.Background(), 7); !errors.Is(err, messageerrors.ErrMessageNotFound) {
		t.Fatalf("message still present after delete")
	}
}
