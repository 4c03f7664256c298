package sink

import (
	"context"
	"sync"
	"time"

	"github.com/travigo/railtracker/pkg/tracker"
	"golang.org/x/exp/slices"
)

// LatestStore keeps only the newest result of every session
type LatestStore struct {
	mutex   sync.RWMutex
	results map[string]LatestResult
}

type LatestResult struct {
	SessionID  string
	View       tracker.ResultView
	ReceivedAt time.Time
}

func NewLatestStore() *LatestStore {
	return &LatestStore{results: map[string]LatestResult{}}
}

func (l *LatestStore) Name() string {
	return "latest"
}

func (l *LatestStore) Publish(ctx context.Context, sessionID string, result *tracker.TrackingResult) error {
	l.Store(sessionID, result.View(), time.Now())

	return nil
}

// Reset forgets the session's result so the next trip can store older fixes
func (l *LatestStore) Reset(ctx context.Context, sessionID string) error {
	l.Delete(sessionID)

	return nil
}

// Store keeps view unless a newer fix of the session is already stored
func (l *LatestStore) Store(sessionID string, view tracker.ResultView, receivedAt time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if current, ok := l.results[sessionID]; ok && current.View.Fix.Timestamp.After(view.Fix.Timestamp) {
		return
	}

	l.results[sessionID] = LatestResult{SessionID: sessionID, View: view, ReceivedAt: receivedAt}
}

func (l *LatestStore) Get(sessionID string) (LatestResult, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	result, ok := l.results[sessionID]
	return result, ok
}

// Sessions lists the sessions with a result, in ID order
func (l *LatestStore) Sessions() []string {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	sessions := make([]string, 0, len(l.results))
	for sessionID := range l.results {
		sessions = append(sessions, sessionID)
	}
	slices.Sort(sessions)

	return sessions
}

func (l *LatestStore) Delete(sessionID string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delete(l.results, sessionID)
}
