package counsellor

import (
	"github.com/abroad-hub/counsellor/internal/application/command"
	"github.com/abroad-hub/counsellor/internal/application/query"
	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/scoring"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// Stores are the persistence ports the engine reads and writes.
type Stores struct {
	Users        profile.UserRepository
	Profiles     profile.Repository
	Universities university.Repository
	Ledger       selection.Store
}

// Recorder is the full instrumentation surface. *metrics.Metrics satisfies it.
type Recorder interface {
	command.Recorder
	query.ScoringRecorder
	GateRecorder
}

// Options configure Wire.
type Options struct {
	DocumentPolicy selection.DocumentPolicy
	Recommend      scoring.Options
	MaxAttempts    int
	Publisher      shared.EventPublisher // optional
	Recorder       Recorder              // optional
	Logger         *logger.Logger        // optional
}

// Wire builds the handlers and the service over the given stores.
func Wire(stores Stores, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	policy := opts.DocumentPolicy
	if policy == "" {
		policy = selection.DefaultDocumentPolicy
	}

	runnerOpts := []command.TxOption{command.WithLogger(log)}
	if opts.MaxAttempts > 0 {
		runnerOpts = append(runnerOpts, command.WithMaxAttempts(opts.MaxAttempts))
	}
	if opts.Publisher != nil {
		runnerOpts = append(runnerOpts, command.WithPublisher(opts.Publisher))
	}
	var scoringRec query.ScoringRecorder
	var gateRec GateRecorder
	if opts.Recorder != nil {
		runnerOpts = append(runnerOpts, command.WithRecorder(opts.Recorder))
		scoringRec = opts.Recorder
		gateRec = opts.Recorder
	}
	runner := command.NewTxRunner(stores.Ledger, runnerOpts...)
	source := command.StageSource{Users: stores.Users, Profiles: stores.Profiles}

	stages := query.NewGetStageHandler(stores.Users, stores.Profiles, stores.Ledger)
	return NewService(Dependencies{
		Stages:          stages,
		Recommendations: query.NewGetRecommendationsHandler(stages, stores.Universities, opts.Recommend, scoringRec),
		Ledger:          query.NewGetLedgerHandler(stores.Ledger, stores.Universities),
		Universities:    stores.Universities,
		Lock:            command.NewLockUniversityHandler(source, stores.Universities, runner, policy, log),
		Unlock:          command.NewUnlockUniversityHandler(runner, log),
		Toggle:          command.NewToggleShortlistHandler(source, stores.Universities, runner, log),
		GenerateTasks:   command.NewGenerateTasksHandler(runner, log),
		SyncDocuments:   command.NewSyncShortlistDocumentsHandler(runner, policy, log),
		PurgeOrphans:    command.NewPurgeOrphansHandler(runner, policy, log),
		Gate:            gateRec,
		Logger:          log,
	})
}
