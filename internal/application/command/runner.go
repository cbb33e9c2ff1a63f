// Package command contains the ledger write operations. Every command runs in
// one unit of work per user; events are published only after commit.
package command

import (
	"context"
	"time"

	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
	"github.com/abroad-hub/counsellor/pkg/logger"
	"github.com/abroad-hub/counsellor/pkg/retry"
)

// Recorder receives ledger instrumentation.
type Recorder interface {
	LedgerOperation(operation string, err error)
	LedgerRetry()
}

type nopRecorder struct{}

func (nopRecorder) LedgerOperation(string, error) {}
func (nopRecorder) LedgerRetry()                  {}

// ══════════════════════════════════════════════════════════════════════════════
// TX RUNNER
// ══════════════════════════════════════════════════════════════════════════════

// TxRunner runs ledger units of work with retry on serialization conflicts,
// then publishes the events the work produced.
type TxRunner struct {
	uow       selection.UnitOfWork
	retrier   *retry.Retrier
	publisher shared.EventPublisher
	recorder  Recorder
	log       *logger.Logger
	now       func() time.Time
}

// TxOption configures a TxRunner.
type TxOption func(*TxRunner)

// WithPublisher sets the event publisher.
func WithPublisher(p shared.EventPublisher) TxOption {
	return func(r *TxRunner) { r.publisher = p }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) TxOption {
	return func(r *TxRunner) { r.recorder = rec }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) TxOption {
	return func(r *TxRunner) { r.log = l }
}

// WithMaxAttempts bounds the attempts per unit of work.
func WithMaxAttempts(n int) TxOption {
	return func(r *TxRunner) { r.retrier = retry.TransactionRetrier(n) }
}

// WithClock replaces time.Now for created records.
func WithClock(now func() time.Time) TxOption {
	return func(r *TxRunner) { r.now = now }
}

// NewTxRunner creates a runner over the given unit of work.
func NewTxRunner(uow selection.UnitOfWork, opts ...TxOption) *TxRunner {
	r := &TxRunner{
		uow:       uow,
		retrier:   retry.TransactionRetrier(3),
		publisher: shared.NoopPublisher{},
		recorder:  nopRecorder{},
		log:       logger.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes fn atomically for userID. fn may be called more than once when
// the store reports a retryable conflict, so it must not keep state between
// calls except through its return values.
func (r *TxRunner) Run(ctx context.Context, op string, userID shared.UserID, fn func(tx selection.Tx) error) error {
	attempt := 0
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			r.recorder.LedgerRetry()
			r.log.Warn("retrying ledger transaction",
				logger.Operation(op), logger.UserID(userID.String()), logger.Attempt(attempt))
		}
		err := r.uow.WithinTx(ctx, userID, fn)
		if shared.IsRetryable(err) {
			return retry.Retryable(err)
		}
		return err
	})
	r.recorder.LedgerOperation(op, err)
	return err
}

// Publish sends events after a successful commit. Failures are logged only.
func (r *TxRunner) Publish(events ...shared.Event) {
	for _, ev := range events {
		if err := r.publisher.Publish(ev); err != nil {
			r.log.Error("publish ledger event", logger.EventType(string(ev.EventType())), logger.Err(err))
		}
	}
}

// Now returns the runner's clock.
func (r *TxRunner) Now() time.Time {
	return r.now()
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE INPUTS
// ══════════════════════════════════════════════════════════════════════════════

// StageSource loads the non-ledger inputs of stage inference.
type StageSource struct {
	Users    profile.UserRepository
	Profiles profile.Repository
}

// Load returns the user and profile. A missing profile is not an error: the
// user is then in ANALYSIS (or ONBOARDING).
func (s StageSource) Load(ctx context.Context, userID shared.UserID) (*profile.User, *profile.Profile, error) {
	user, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.Profiles.GetProfile(ctx, userID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, nil, err
	}
	return user, p, nil
}

// inferInTx derives the stage from the ledger as the transaction sees it.
func inferInTx(ctx context.Context, tx selection.Tx, user *profile.User, p *profile.Profile) (stage.Stage, selection.Ledger, error) {
	ledger, err := tx.Entries(ctx)
	if err != nil {
		return 0, nil, err
	}
	return stage.Infer(user, p, ledger), ledger, nil
}
