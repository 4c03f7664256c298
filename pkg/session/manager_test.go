package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/railtracker/pkg/sink"
)

func TestManagerOpensSessionsOnFirstFix(t *testing.T) {
	latest := sink.NewLatestStore()
	options := DefaultOptions()
	options.Sinks = []sink.Sink{latest}

	manager := NewManager(context.Background(), testIndex(t), options, time.Minute)

	fixes := northbound(4)
	for _, fix := range fixes {
		require.NoError(t, manager.Submit("b", fix))
	}
	require.NoError(t, manager.Submit("a", fixes[0]))

	assert.Equal(t, []string{"a", "b"}, manager.Sessions())

	manager.Close()
	assert.Empty(t, manager.Sessions())
	assert.ErrorIs(t, manager.Submit("a", fixes[1]), ErrManagerClosed)

	stored, ok := latest.Get("b")
	require.True(t, ok)
	assert.Equal(t, fixes[3].ID, stored.View.Fix.ID)
}

func TestManagerResetUnknownSession(t *testing.T) {
	manager := NewManager(context.Background(), testIndex(t), DefaultOptions(), time.Minute)
	defer manager.Close()

	assert.NoError(t, manager.Reset("unknown"))
	assert.Empty(t, manager.Sessions())
}

func TestManagerResetAfterIdleCloseClearsLatestResult(t *testing.T) {
	latest := sink.NewLatestStore()
	options := DefaultOptions()
	options.Sinks = []sink.Sink{latest}

	manager := NewManager(context.Background(), testIndex(t), options, time.Minute)
	defer manager.Close()

	for _, fix := range northbound(3) {
		require.NoError(t, manager.Submit("device", fix))
	}
	require.Equal(t, 1, manager.CloseIdle(time.Now().Add(time.Hour)))

	_, ok := latest.Get("device")
	require.True(t, ok)

	require.NoError(t, manager.Reset("device"))
	assert.Empty(t, manager.Sessions())
	_, ok = latest.Get("device")
	assert.False(t, ok)

	// The next trip is stored even though its fixes are older
	older := northbound(1)[0]
	older.Timestamp = testStart.Add(-time.Hour)
	require.NoError(t, manager.Submit("device", older))
	manager.Close()

	stored, ok := latest.Get("device")
	require.True(t, ok)
	assert.Equal(t, older.ID, stored.View.Fix.ID)
}

func TestManagerClosesIdleSessions(t *testing.T) {
	var closedMutex sync.Mutex
	var closed []string

	manager := NewManager(context.Background(), testIndex(t), DefaultOptions(), time.Minute)
	manager.OnClose = func(sessionID string) {
		closedMutex.Lock()
		defer closedMutex.Unlock()
		closed = append(closed, sessionID)
	}
	defer manager.Close()

	fix := northbound(1)[0]
	require.NoError(t, manager.Submit("idle", fix))
	require.NoError(t, manager.Submit("busy", fix))

	assert.Equal(t, 0, manager.CloseIdle(time.Now()))

	busy, ok := manager.Get("busy")
	require.True(t, ok)

	assert.Equal(t, 2, manager.CloseIdle(time.Now().Add(2*time.Minute)))
	assert.Empty(t, manager.Sessions())
	assert.ElementsMatch(t, []string{"idle", "busy"}, closed)

	select {
	case <-busy.Done():
	default:
		t.Fatal("idle session still running")
	}

	// A closed session is reopened by its next fix
	require.NoError(t, manager.Submit("busy", fix))
	assert.Equal(t, []string{"busy"}, manager.Sessions())
}

func TestManagerSubmitRacingCloseIdle(t *testing.T) {
	recording := &recordingSink{}
	options := DefaultOptions()
	options.Sinks = []sink.Sink{recording}

	manager := NewManager(context.Background(), testIndex(t), options, time.Minute)

	stop := make(chan struct{})
	var closer sync.WaitGroup
	closer.Add(1)
	go func() {
		defer closer.Done()
		for {
			select {
			case <-stop:
				return
			default:
				// Every session looks idle to this clock
				manager.CloseIdle(time.Now().Add(time.Hour))
			}
		}
	}()

	fixes := northbound(200)
	for _, fix := range fixes {
		require.NoError(t, manager.Submit("racing", fix))
	}

	close(stop)
	closer.Wait()
	manager.Close()

	recording.mutex.Lock()
	defer recording.mutex.Unlock()
	assert.Len(t, recording.fixes, len(fixes))
}
