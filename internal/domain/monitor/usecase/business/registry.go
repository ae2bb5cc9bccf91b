package business

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/config"
	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/domain/monitor/deps"
	"github.com/supersunho/senseinfo/internal/infrastructure/metrics"
)

// ProcessorFactory builds a stopped processor for one account
type ProcessorFactory func(accountID uint) *Processor

// Registry guarantees at most one live processor per account. Its lock
// guards only the map; Start and Stop run outside it, and the
// processor's own state machine makes a second StartFor while running a
// no-op that returns the same handle.
type Registry struct {
	mu      sync.Mutex
	procs   map[uint]*Processor
	factory ProcessorFactory
	logger  zerolog.Logger
}

// NewRegistry creates an empty processor registry
func NewRegistry(factory ProcessorFactory, logger zerolog.Logger) *Registry {
	return &Registry{
		procs:   make(map[uint]*Processor),
		factory: factory,
		logger:  logger.With().Str("component", "processor_registry").Logger(),
	}
}

// NewRegistryFx wires the registry with its processor factory for fx DI
func NewRegistryFx(
	monitorCfg *config.MonitorConfig,
	conns domain.ConnectionManager,
	limiter domain.RateLimiter,
	repo deps.MonitorRepository,
	forwarder domain.Forwarder,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Registry {
	factory := func(accountID uint) *Processor {
		return NewProcessor(ProcessorOptions{
			AccountID:    accountID,
			Conns:        conns,
			Limiter:      limiter,
			Repo:         repo,
			Forwarder:    forwarder,
			PollInterval: monitorCfg.PollInterval,
			Metrics:      m,
			Logger:       logger,
		})
	}
	return NewRegistry(factory, logger)
}

// StartFor starts monitoring for an account and returns the processor
// handle. Idempotent: a running processor is returned unchanged, a
// stopped one is restarted in place. A fresh entry that fails to start
// is removed again and the error surfaced.
func (r *Registry) StartFor(ctx context.Context, accountID uint) (*Processor, error) {
	r.mu.Lock()
	proc, existed := r.procs[accountID]
	if !existed {
		proc = r.factory(accountID)
		r.procs[accountID] = proc
	}
	r.mu.Unlock()

	if err := proc.Start(ctx); err != nil {
		if !existed {
			r.mu.Lock()
			if r.procs[accountID] == proc {
				delete(r.procs, accountID)
			}
			r.mu.Unlock()
		}
		r.logger.Error().Err(err).Uint("account_id", accountID).Msg("processor start failed")
		return nil, err
	}

	return proc, nil
}

// StopFor stops and removes an account's processor. Absent entries are
// a silent no-op.
func (r *Registry) StopFor(ctx context.Context, accountID uint) error {
	r.mu.Lock()
	proc, exists := r.procs[accountID]
	if exists {
		delete(r.procs, accountID)
	}
	r.mu.Unlock()

	if !exists {
		return nil
	}
	return proc.Stop(ctx)
}

// StopAll stops and removes every processor. Invoked once at shutdown,
// after which the registry is empty and inert.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	procs := make([]*Processor, 0, len(r.procs))
	for accountID, proc := range r.procs {
		procs = append(procs, proc)
		delete(r.procs, accountID)
	}
	r.mu.Unlock()

	for _, proc := range procs {
		if err := proc.Stop(ctx); err != nil {
			r.logger.Warn().Err(err).Uint("account_id", proc.AccountID()).Msg("stop failed during shutdown")
		}
	}
	r.logger.Info().Int("count", len(procs)).Msg("all processors stopped")
}

// Get returns the account's processor handle, or nil when none exists
func (r *Registry) Get(accountID uint) *Processor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.procs[accountID]
}

// RunningCount reports the number of processors currently running
func (r *Registry) RunningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, proc := range r.procs {
		if proc.State() == StateRunning {
			count++
		}
	}
	return count
}
