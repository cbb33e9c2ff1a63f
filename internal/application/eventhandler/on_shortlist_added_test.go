package eventhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abroad-hub/counsellor/internal/application/command"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/pkg/logger/loggertest"
)

type fakeSyncer struct {
	calls []shared.UserID
	err   error
}

func (f *fakeSyncer) Handle(_ context.Context, cmd command.SyncShortlistDocumentsCommand) (*command.SyncDocumentsResult, error) {
	f.calls = append(f.calls, cmd.UserID)
	if f.err != nil {
		return nil, f.err
	}
	return &command.SyncDocumentsResult{Created: map[shared.UniversityID]int{"mit": 7}}, nil
}

type recordingBus struct {
	subscribed []shared.EventType
}

func (b *recordingBus) Subscribe(t shared.EventType, _ shared.EventHandler) error {
	b.subscribed = append(b.subscribed, t)
	return nil
}

func (b *recordingBus) SubscribeAll(shared.EventHandler) error { return nil }

func TestOnShortlistAdded_SyncsUnderShortlistPolicy(t *testing.T) {
	syncer := &fakeSyncer{}
	h := NewOnShortlistAddedHandler(syncer,
		ShortlistAddedConfig{Policy: selection.DocumentsOnShortlist}, loggertest.New(t))

	require.NoError(t, h.Handle(shared.NewLedgerEvent(shared.EventShortlistAdded, "u1", "mit")))
	require.NoError(t, h.Handle(shared.NewLedgerEvent(shared.EventUniversityLocked, "u1", "mit")))
	assert.Equal(t, []shared.UserID{"u1"}, syncer.calls)

	bus := &recordingBus{}
	require.NoError(t, h.Register(bus))
	assert.Equal(t, []shared.EventType{shared.EventShortlistAdded}, bus.subscribed)
}

func TestOnShortlistAdded_DisabledForLockOnlyPolicy(t *testing.T) {
	syncer := &fakeSyncer{}
	h := NewOnShortlistAddedHandler(syncer, DefaultShortlistAddedConfig(), nil)

	require.NoError(t, h.Handle(shared.NewLedgerEvent(shared.EventShortlistAdded, "u1", "mit")))
	assert.Empty(t, syncer.calls)

	bus := &recordingBus{}
	require.NoError(t, h.Register(bus))
	assert.Empty(t, bus.subscribed)
}

func TestOnShortlistAdded_PropagatesSyncErrors(t *testing.T) {
	boom := errors.New("db down")
	h := NewOnShortlistAddedHandler(&fakeSyncer{err: boom},
		ShortlistAddedConfig{Policy: selection.DocumentsOnShortlist}, nil)

	assert.ErrorIs(t, h.Handle(shared.NewLedgerEvent(shared.EventShortlistAdded, "u1", "mit")), boom)
}
