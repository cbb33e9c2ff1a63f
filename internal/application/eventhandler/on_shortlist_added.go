// Package eventhandler contains subscribers for ledger domain events.
package eventhandler

import (
	"context"
	"time"

	"github.com/abroad-hub/counsellor/internal/application/command"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON SHORTLIST ADDED HANDLER
// Under DOCUMENTS_ON_SHORTLIST a newly shortlisted university gets its
// document checklist right away, in its own unit of work.
// ═══════════════════════════════════════════════════════════════════════════

// DocumentSyncer creates missing shortlist documents for a user.
type DocumentSyncer interface {
	Handle(ctx context.Context, cmd command.SyncShortlistDocumentsCommand) (*command.SyncDocumentsResult, error)
}

// ShortlistAddedConfig contains handler settings.
type ShortlistAddedConfig struct {
	Policy  selection.DocumentPolicy
	Timeout time.Duration
}

// DefaultShortlistAddedConfig returns the default configuration.
func DefaultShortlistAddedConfig() ShortlistAddedConfig {
	return ShortlistAddedConfig{
		Policy:  selection.DefaultDocumentPolicy,
		Timeout: 5 * time.Second,
	}
}

// OnShortlistAddedHandler reacts to shortlist additions.
type OnShortlistAddedHandler struct {
	syncer DocumentSyncer
	config ShortlistAddedConfig
	log    *logger.Logger
}

// NewOnShortlistAddedHandler creates a new handler.
func NewOnShortlistAddedHandler(syncer DocumentSyncer, config ShortlistAddedConfig, log *logger.Logger) *OnShortlistAddedHandler {
	if log == nil {
		log = logger.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultShortlistAddedConfig().Timeout
	}
	return &OnShortlistAddedHandler{
		syncer: syncer,
		config: config,
		log:    log.With(logger.Component("on_shortlist_added")),
	}
}

// Enabled reports whether the active policy needs this handler.
func (h *OnShortlistAddedHandler) Enabled() bool {
	return h.config.Policy == selection.DocumentsOnShortlist
}

// Handle implements shared.EventHandler.
func (h *OnShortlistAddedHandler) Handle(event shared.Event) error {
	if !h.Enabled() || event.EventType() != shared.EventShortlistAdded {
		return nil
	}
	ev, ok := event.(*shared.LedgerEvent)
	if !ok {
		h.log.Warn("unexpected event payload", logger.EventType(string(event.EventType())))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	res, err := h.syncer.Handle(ctx, command.SyncShortlistDocumentsCommand{UserID: ev.UserID})
	if err != nil {
		h.log.Error("document sync failed",
			logger.UserID(ev.UserID.String()),
			logger.UniversityID(ev.UniversityID.String()),
			logger.Err(err))
		return err
	}
	h.log.Debug("documents synced",
		logger.UserID(ev.UserID.String()),
		logger.Int("documents_created", res.Total()))
	return nil
}

// Register subscribes the handler when the policy needs it.
func (h *OnShortlistAddedHandler) Register(bus shared.EventSubscriber) error {
	if !h.Enabled() {
		return nil
	}
	return bus.Subscribe(shared.EventShortlistAdded, h.Handle)
}
