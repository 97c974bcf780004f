package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/botframe/billingcore/pkg/metrics"
)

// DedupWindow is the rolling interval during which a given
// (definition, account) pair fires at most once.
const DedupWindow = 24 * time.Hour

const (
	// defaultChunkWidth bounds how many accounts a definition
	// processes concurrently; defaultChunkDelay spaces the chunks so
	// batched external calls stay under third-party rate limits.
	defaultChunkWidth = 5
	defaultChunkDelay = 200 * time.Millisecond
)

// Engine scans the account population on each externally triggered
// tick and fires definition actions with 24-hour dedup.
type Engine struct {
	defs     DefinitionStore
	accounts AccountSource
	execs    ExecutionStore
	executor Executor
	reserver Reserver // optional

	chunkWidth int
	chunkDelay time.Duration
	log        *slog.Logger
	now        func() time.Time

	mu sync.Mutex // single-flight tick guard
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithReserver enables the atomic dedup reservation layer.
func WithReserver(r Reserver) EngineOption {
	return func(e *Engine) { e.reserver = r }
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithChunking overrides the per-definition batch width and delay.
func WithChunking(width int, delay time.Duration) EngineOption {
	return func(e *Engine) {
		if width > 0 {
			e.chunkWidth = width
		}
		if delay >= 0 {
			e.chunkDelay = delay
		}
	}
}

// WithEngineClock overrides the time source. Used by tests.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an automation engine. Panics on nil dependencies to
// fail fast during initialization.
func NewEngine(defs DefinitionStore, accounts AccountSource, execs ExecutionStore, executor Executor, opts ...EngineOption) *Engine {
	if defs == nil {
		panic("automation: DefinitionStore is required")
	}
	if accounts == nil {
		panic("automation: AccountSource is required")
	}
	if execs == nil {
		panic("automation: ExecutionStore is required")
	}
	if executor == nil {
		panic("automation: Executor is required")
	}

	e := &Engine{
		defs:       defs,
		accounts:   accounts,
		execs:      execs,
		executor:   executor,
		chunkWidth: defaultChunkWidth,
		chunkDelay: defaultChunkDelay,
		log:        slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick runs one full scan and returns the number of executions
// recorded (successes and failures both count). Ticks never overlap: a
// concurrent call returns ErrTickInProgress so a slow scan is finished,
// never preempted.
func (e *Engine) Tick(ctx context.Context) (int, error) {
	if !e.mu.TryLock() {
		return 0, ErrTickInProgress
	}
	defer e.mu.Unlock()

	timer := prometheus.NewTimer(metrics.TickDuration)
	defer timer.ObserveDuration()

	now := e.now()

	defs, err := e.defs.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("load definitions: %w", err)
	}
	// Creation order is the documented evaluation order.
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].CreatedAt.Before(defs[j].CreatedAt) })

	// One population snapshot shared by every definition this tick.
	accounts, err := e.accounts.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("load account snapshot: %w", err)
	}

	executed := 0
	for _, def := range defs {
		matched := make([]Account, 0)
		for _, acc := range accounts {
			if def.Matches(acc, now) {
				matched = append(matched, acc)
			}
		}
		if len(matched) == 0 {
			continue
		}

		n := e.runDefinition(ctx, def, matched, now)
		executed += n

		e.log.InfoContext(ctx, "automation definition evaluated",
			slog.String("definition", def.Name),
			slog.Int("matched", len(matched)),
			slog.Int("executed", n))
	}

	return executed, nil
}

// runDefinition processes matched accounts in chunks of fixed
// concurrency width with an inter-chunk delay, so one broad definition
// cannot stampede an external delivery collaborator. A failure in one
// chunk never blocks the following chunks.
func (e *Engine) runDefinition(ctx context.Context, def Definition, matched []Account, now time.Time) int {
	var (
		mu       sync.Mutex
		executed int
	)

	for start := 0; start < len(matched); start += e.chunkWidth {
		end := min(start+e.chunkWidth, len(matched))

		var wg sync.WaitGroup
		for _, acc := range matched[start:end] {
			wg.Add(1)
			go func(acc Account) {
				defer wg.Done()
				if e.fireOnce(ctx, def, acc, now) {
					mu.Lock()
					executed++
					mu.Unlock()
				}
			}(acc)
		}
		wg.Wait()

		if end < len(matched) && e.chunkDelay > 0 {
			select {
			case <-ctx.Done():
				return executed
			case <-time.After(e.chunkDelay):
			}
		}
	}

	return executed
}

// fireOnce applies the dedup layers and, when the pair is fresh,
// executes the action and records the outcome. The execution row is
// written on failure too: a broken recipient counts against the window
// rather than being hammered every tick.
func (e *Engine) fireOnce(ctx context.Context, def Definition, acc Account, now time.Time) bool {
	seen, err := e.execs.ExecutedSince(ctx, def.ID, acc.ID, now.Add(-DedupWindow))
	if err != nil {
		e.log.ErrorContext(ctx, "dedup lookback failed",
			slog.String("definition", def.Name),
			slog.String("account_id", acc.ID.String()),
			slog.Any("error", err))
		return false
	}
	if seen {
		return false
	}

	// The reservation collapses check and act into one atomic step when
	// redis is available; two racing ticks cannot both win the key.
	if e.reserver != nil {
		fresh, err := e.reserver.Reserve(ctx, def.ID, acc.ID, DedupWindow)
		if err != nil {
			e.log.WarnContext(ctx, "dedup reservation unavailable, falling back to lookback",
				slog.Any("error", err))
		} else if !fresh {
			return false
		}
	}

	execErr := e.executor.Execute(ctx, def, acc)

	result := "success"
	if execErr != nil {
		result = "failure"
	}
	metrics.AutomationExecutions.WithLabelValues(string(def.Trigger), result).Inc()

	exec := Execution{
		ID:           uuid.New(),
		DefinitionID: def.ID,
		AccountID:    acc.ID,
		Success:      execErr == nil,
		ExecutedAt:   now,
	}
	if execErr != nil {
		exec.Detail = execErr.Error()
		e.log.ErrorContext(ctx, "automation action failed",
			slog.String("definition", def.Name),
			slog.String("account_id", acc.ID.String()),
			slog.Any("error", execErr))
	}

	if err := e.execs.Record(ctx, exec); err != nil {
		e.log.ErrorContext(ctx, "failed to record automation execution",
			slog.String("definition", def.Name),
			slog.String("account_id", acc.ID.String()),
			slog.Any("error", err))
	}

	return true
}
