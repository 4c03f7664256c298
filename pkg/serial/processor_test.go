package serial

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func double(ctx context.Context, in int) (int, bool) {
	return in * 2, true
}

func collect[Out any](t *testing.T, p interface {
	Next(context.Context) (Out, error)
}) []Out {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var results []Out
	for {
		out, err := p.Next(ctx)
		if err == io.EOF {
			return results
		}
		require.NoError(t, err)
		results = append(results, out)
	}
}

func TestProcessorKeepsSubmissionOrder(t *testing.T) {
	p := Start(context.Background(), double, Unbounded())

	var wg sync.WaitGroup
	wg.Add(1)
	var results []int
	go func() {
		defer wg.Done()
		results = collect[int](t, p)
	}()

	for i := 0; i < 1000; i++ {
		require.NoError(t, p.Submit(i))
	}
	p.Finish()
	p.Wait()
	wg.Wait()

	require.Len(t, results, 1000)
	for i, result := range results {
		assert.Equal(t, i*2, result)
	}
	assert.Zero(t, p.Dropped())
}

func TestProcessorSkipsItemsWithoutResult(t *testing.T) {
	odd := func(ctx context.Context, in int) (int, bool) {
		return in, in%2 == 1
	}
	p := Start(context.Background(), odd, Unbounded())

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(i))
	}
	p.Finish()

	assert.Equal(t, []int{1, 3, 5, 7, 9}, collect[int](t, p))
}

func TestProcessorBufferingNewest(t *testing.T) {
	p := Start(context.Background(), double, BufferingNewest(3))

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(i))
	}
	p.Finish()
	p.Wait()

	assert.Equal(t, []int{14, 16, 18}, collect[int](t, p))
	assert.Equal(t, 7, p.Dropped())
}

func TestProcessorSubmitAfterFinish(t *testing.T) {
	p := Start(context.Background(), double, Unbounded())

	require.NoError(t, p.Submit(1))
	p.Finish()
	p.Finish()

	assert.ErrorIs(t, p.Submit(2), ErrClosed)
	assert.Equal(t, []int{2}, collect[int](t, p))
}

func TestProcessorCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	var processed []int
	blocking := func(ctx context.Context, in int) (int, bool) {
		if in == 0 {
			close(started)
			<-release
		}
		processed = append(processed, in)
		return in, true
	}

	p := Start(ctx, blocking, Unbounded())
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(i))
	}

	<-started
	cancel()
	close(release)
	p.Wait()

	// The item in progress completes without publishing, the rest are discarded
	assert.Equal(t, []int{0}, processed)
	assert.Zero(t, p.Pending())
	assert.ErrorIs(t, p.Submit(5), ErrClosed)
	assert.Empty(t, collect[int](t, p))
}

func TestProcessorResultsChannel(t *testing.T) {
	p := Start(context.Background(), double, Unbounded())

	for i := 1; i <= 3; i++ {
		require.NoError(t, p.Submit(i))
	}
	p.Finish()

	var results []int
	for result := range p.Results(context.Background()) {
		results = append(results, result)
	}
	assert.Equal(t, []int{2, 4, 6}, results)
}

func TestProcessorNextHonoursContext(t *testing.T) {
	p := Start(context.Background(), double, Unbounded())
	defer p.Finish()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
