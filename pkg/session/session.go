package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
	"github.com/travigo/railtracker/pkg/serial"
	"github.com/travigo/railtracker/pkg/sink"
	"github.com/travigo/railtracker/pkg/tracker"
)

// Observer is told about the life of sessions and the results they publish
type Observer interface {
	tracker.Observer

	ResultPublished(sink string, err error)
	SessionOpened()
	SessionClosed()
}

type Options struct {
	Config   tracker.Config
	Buffer   serial.BufferPolicy
	Sinks    []sink.Sink
	Observer Observer
}

// DefaultOptions keeps every result and publishes nowhere
func DefaultOptions() Options {
	return Options{
		Config: tracker.DefaultConfig,
		Buffer: serial.Unbounded(),
	}
}

type request struct {
	fix   location.Fix
	reset bool
}

// Session is one tracked trip: a tracker owned by the worker of a serial processor
type Session struct {
	ID string

	tracker   *tracker.Tracker
	processor *serial.Processor[request, *tracker.TrackingResult]
	sinks     []sink.Sink
	observer  Observer

	lastActivity atomic.Int64
	closed       atomic.Bool
}

// Start opens a session. Cancelling ctx aborts it without draining.
func Start(ctx context.Context, id string, index railway.Index, options Options) *Session {
	trackerOptions := []tracker.Option{tracker.WithConfig(options.Config)}
	if options.Observer != nil {
		trackerOptions = append(trackerOptions, tracker.WithObserver(options.Observer))
	}

	s := &Session{
		ID:       id,
		tracker:  tracker.NewTracker(index, trackerOptions...),
		sinks:    options.Sinks,
		observer: options.Observer,
	}
	s.touch()
	s.processor = serial.Start(ctx, s.handle, options.Buffer)

	if s.observer != nil {
		s.observer.SessionOpened()
		go func() {
			<-s.processor.Done()
			s.observer.SessionClosed()
		}()
	}

	return s
}

// Submit queues a fix behind everything submitted before it
func (s *Session) Submit(fix location.Fix) error {
	s.touch()
	return s.processor.Submit(request{fix: fix})
}

// Reset queues a reset. Fixes submitted earlier are processed by the old trip,
// fixes submitted later start a new one. A reset produces no result.
func (s *Session) Reset() error {
	s.touch()
	return s.processor.Submit(request{reset: true})
}

func (s *Session) Next(ctx context.Context) (*tracker.TrackingResult, error) {
	return s.processor.Next(ctx)
}

func (s *Session) Results(ctx context.Context) <-chan *tracker.TrackingResult {
	return s.processor.Results(ctx)
}

// Close stops accepting fixes and waits for the queued ones to be processed
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		log.Debug().Str("session", s.ID).Int("pending", s.processor.Pending()).Msg("Closing tracking session")
	}

	s.processor.Finish()
	s.processor.Wait()
}

func (s *Session) Done() <-chan struct{} {
	return s.processor.Done()
}

func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *Session) handle(ctx context.Context, req request) (*tracker.TrackingResult, bool) {
	if req.reset {
		s.tracker.Reset()
		resetSinks(ctx, s.sinks, s.ID)
		log.Debug().Str("session", s.ID).Msg("Tracking session reset")
		return nil, false
	}

	result := s.tracker.Process(ctx, req.fix)
	if ctx.Err() != nil {
		return nil, false
	}

	for _, resultSink := range s.sinks {
		err := resultSink.Publish(ctx, s.ID, result)
		if err != nil {
			log.Error().Err(err).Str("session", s.ID).Str("sink", resultSink.Name()).Msg("Failed to publish tracking result")
		}
		if s.observer != nil {
			s.observer.ResultPublished(resultSink.Name(), err)
		}
	}

	return result, true
}

func resetSinks(ctx context.Context, sinks []sink.Sink, sessionID string) {
	for _, resultSink := range sinks {
		resetter, ok := resultSink.(sink.Resetter)
		if !ok {
			continue
		}
		if err := resetter.Reset(ctx, sessionID); err != nil {
			log.Error().Err(err).Str("session", sessionID).Str("sink", resultSink.Name()).Msg("Failed to reset sink")
		}
	}
}
