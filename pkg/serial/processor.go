package serial

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by Submit once the processor is finishing or has stopped
var ErrClosed = errors.New("processor is closed")

// BufferPolicy bounds the results waiting to be read
type BufferPolicy struct {
	limit int
}

// Unbounded keeps every result until it is read
func Unbounded() BufferPolicy {
	return BufferPolicy{}
}

// BufferingNewest keeps at most n unread results, dropping the oldest
func BufferingNewest(n int) BufferPolicy {
	if n < 1 {
		n = 1
	}
	return BufferPolicy{limit: n}
}

// Handler processes one submitted item. Returning false produces no result.
type Handler[In any, Out any] func(ctx context.Context, in In) (Out, bool)

// Processor runs submitted items through a handler one at a time, in
// submission order, on a single worker goroutine
type Processor[In any, Out any] struct {
	handler Handler[In, Out]
	policy  BufferPolicy

	inboundMutex sync.Mutex
	inbound      []In
	finishing    bool
	stopped      bool
	inboundReady chan struct{}

	outboundMutex sync.Mutex
	outbound      []Out
	dropped       int
	drained       bool
	outboundReady chan struct{}

	done chan struct{}
}

// Start launches the worker. Cancelling ctx stops it after the item in
// progress, discarding that item's result and anything still queued.
func Start[In any, Out any](ctx context.Context, handler Handler[In, Out], policy BufferPolicy) *Processor[In, Out] {
	p := &Processor[In, Out]{
		handler:       handler,
		policy:        policy,
		inboundReady:  make(chan struct{}, 1),
		outboundReady: make(chan struct{}, 1),
		done:          make(chan struct{}),
	}

	go p.run(ctx)

	return p
}

// Submit queues an item without blocking
func (p *Processor[In, Out]) Submit(in In) error {
	p.inboundMutex.Lock()
	defer p.inboundMutex.Unlock()

	if p.finishing || p.stopped {
		return ErrClosed
	}

	p.inbound = append(p.inbound, in)
	signal(p.inboundReady)

	return nil
}

// Finish stops accepting items. Everything already submitted is still processed.
func (p *Processor[In, Out]) Finish() {
	p.inboundMutex.Lock()
	defer p.inboundMutex.Unlock()

	p.finishing = true
	signal(p.inboundReady)
}

// Wait blocks until the worker has stopped
func (p *Processor[In, Out]) Wait() {
	<-p.done
}

// Done is closed when the worker has stopped
func (p *Processor[In, Out]) Done() <-chan struct{} {
	return p.done
}

// Next returns the oldest unread result. It returns io.EOF once the worker
// has stopped and every result has been read. Results are meant for a
// single reader.
func (p *Processor[In, Out]) Next(ctx context.Context) (Out, error) {
	for {
		p.outboundMutex.Lock()
		if len(p.outbound) > 0 {
			out := p.outbound[0]
			p.outbound = p.outbound[1:]
			p.outboundMutex.Unlock()
			return out, nil
		}
		drained := p.drained
		p.outboundMutex.Unlock()

		var zero Out
		if drained {
			return zero, io.EOF
		}

		select {
		case <-p.outboundReady:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Results streams every result to a channel that is closed once the
// processor is drained or ctx is cancelled
func (p *Processor[In, Out]) Results(ctx context.Context) <-chan Out {
	results := make(chan Out)

	go func() {
		defer close(results)

		for {
			out, err := p.Next(ctx)
			if err != nil {
				return
			}

			select {
			case results <- out:
			case <-ctx.Done():
				return
			}
		}
	}()

	return results
}

// Dropped is the number of results discarded by the buffer policy
func (p *Processor[In, Out]) Dropped() int {
	p.outboundMutex.Lock()
	defer p.outboundMutex.Unlock()

	return p.dropped
}

// Pending is the number of submitted items not yet taken by the worker
func (p *Processor[In, Out]) Pending() int {
	p.inboundMutex.Lock()
	defer p.inboundMutex.Unlock()

	return len(p.inbound)
}

func (p *Processor[In, Out]) run(ctx context.Context) {
	defer close(p.done)
	defer p.drain()

	for {
		in, ok := p.take(ctx)
		if !ok {
			return
		}

		out, emit := p.handler(ctx, in)
		// Nothing is published once cancellation has been observed
		if emit && ctx.Err() == nil {
			p.push(out)
		}
	}
}

func (p *Processor[In, Out]) take(ctx context.Context) (In, bool) {
	for {
		if ctx.Err() != nil {
			p.stop()
			var zero In
			return zero, false
		}

		p.inboundMutex.Lock()
		if len(p.inbound) > 0 {
			in := p.inbound[0]
			var zero In
			p.inbound[0] = zero
			p.inbound = p.inbound[1:]
			p.inboundMutex.Unlock()
			return in, true
		}
		if p.finishing {
			p.stopped = true
			p.inboundMutex.Unlock()
			var zero In
			return zero, false
		}
		p.inboundMutex.Unlock()

		select {
		case <-p.inboundReady:
		case <-ctx.Done():
		}
	}
}

func (p *Processor[In, Out]) stop() {
	p.inboundMutex.Lock()
	defer p.inboundMutex.Unlock()

	p.stopped = true
	p.inbound = nil
}

func (p *Processor[In, Out]) push(out Out) {
	p.outboundMutex.Lock()
	defer p.outboundMutex.Unlock()

	p.outbound = append(p.outbound, out)
	if p.policy.limit > 0 && len(p.outbound) > p.policy.limit {
		excess := len(p.outbound) - p.policy.limit
		p.dropped += excess
		p.outbound = append([]Out(nil), p.outbound[excess:]...)
	}

	signal(p.outboundReady)
}

func (p *Processor[In, Out]) drain() {
	p.outboundMutex.Lock()
	defer p.outboundMutex.Unlock()

	p.drained = true
	signal(p.outboundReady)
}

func signal(ready chan struct{}) {
	select {
	case ready <- struct{}{}:
	default:
	}
}
