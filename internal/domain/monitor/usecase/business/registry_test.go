package business

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain"
	channelentities "github.com/supersunho/senseinfo/internal/domain/channel/entities"
	keywordentities "github.com/supersunho/senseinfo/internal/domain/keyword/entities"
)

func newTestRegistry(repo *fakeRepo, manager *fakeManager) *Registry {
	factory := func(accountID uint) *Processor {
		return NewProcessor(ProcessorOptions{
			AccountID:    accountID,
			Conns:        manager,
			Limiter:      &fakeLimiter{},
			Repo:         repo,
			Forwarder:    &fakeForwarder{},
			PollInterval: 20 * time.Millisecond,
			Metrics:      testMetrics(),
			Logger:       zerolog.Nop(),
		})
	}
	return NewRegistry(factory, zerolog.Nop())
}

func registryRepo() *fakeRepo {
	return &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "news")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "go", true)},
		},
	}
}

func TestRegistryStartForIdempotent(t *testing.T) {
	manager := &fakeManager{conn: newFakeConn()}
	registry := newTestRegistry(registryRepo(), manager)
	defer registry.StopAll(context.Background())

	first, err := registry.StartFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("first StartFor: %v", err)
	}
	second, err := registry.StartFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("second StartFor: %v", err)
	}

	if first != second {
		t.Error("StartFor returned a different handle for a running processor")
	}
	if got := registry.RunningCount(); got != 1 {
		t.Errorf("RunningCount = %d, want 1", got)
	}
}

func TestRegistryRestartsStoppedProcessorInPlace(t *testing.T) {
	manager := &fakeManager{conn: newFakeConn()}
	registry := newTestRegistry(registryRepo(), manager)
	defer registry.StopAll(context.Background())

	proc, err := registry.StartFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("StartFor: %v", err)
	}
	if err := proc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	restarted, err := registry.StartFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("restart StartFor: %v", err)
	}
	if restarted != proc {
		t.Error("stopped processor was replaced instead of restarted in place")
	}
	if got := restarted.State(); got != StateRunning {
		t.Errorf("state = %s, want %s", got, StateRunning)
	}
}

func TestRegistryStartFailureRemovesFreshEntry(t *testing.T) {
	manager := &fakeManager{err: domain.ErrNotAuthenticated}
	registry := newTestRegistry(&fakeRepo{}, manager)

	_, err := registry.StartFor(context.Background(), 7)
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("StartFor error = %v, want ErrNotAuthenticated", err)
	}
	if registry.Get(7) != nil {
		t.Error("failed fresh entry left behind in the registry")
	}
}

func TestRegistryStopForAbsentIsNoop(t *testing.T) {
	registry := newTestRegistry(&fakeRepo{}, &fakeManager{conn: newFakeConn()})

	if err := registry.StopFor(context.Background(), 99); err != nil {
		t.Fatalf("StopFor absent entry: %v", err)
	}
}

func TestRegistryStopForRemovesEntry(t *testing.T) {
	manager := &fakeManager{conn: newFakeConn()}
	registry := newTestRegistry(registryRepo(), manager)

	proc, err := registry.StartFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("StartFor: %v", err)
	}

	if err := registry.StopFor(context.Background(), 7); err != nil {
		t.Fatalf("StopFor: %v", err)
	}
	if got := proc.State(); got != StateStopped {
		t.Errorf("state = %s, want %s", got, StateStopped)
	}
	if registry.Get(7) != nil {
		t.Error("entry still present after StopFor")
	}
}

func TestRegistryStopAll(t *testing.T) {
	repo := registryRepo()
	registry := newTestRegistry(repo, &fakeManager{conn: newFakeConn()})

	accounts := []uint{1, 2, 3}
	procs := make([]*Processor, 0, len(accounts))
	for _, id := range accounts {
		proc, err := registry.StartFor(context.Background(), id)
		if err != nil {
			t.Fatalf("StartFor(%d): %v", id, err)
		}
		procs = append(procs, proc)
	}

	registry.StopAll(context.Background())

	for _, proc := range procs {
		if got := proc.State(); got != StateStopped {
			t.Errorf("account %d state = %s, want %s", proc.AccountID(), got, StateStopped)
		}
	}
	if got := registry.RunningCount(); got != 0 {
		t.Errorf("RunningCount after StopAll = %d, want 0", got)
	}
	for _, id := range accounts {
		if registry.Get(id) != nil {
			t.Errorf("account %d entry still present after StopAll", id)
		}
	}
}
