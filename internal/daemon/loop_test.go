package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"if1sec/internal/core"
	"if1sec/internal/logger"
)

type fakeReader struct {
	mu   sync.Mutex
	rx   uint64
	tx   uint64
	errs []error
}

func (r *fakeReader) Read(ctx context.Context) (uint64, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return 0, 0, err
		}
	}

	r.rx += 100
	r.tx += 50
	return r.rx, r.tx, nil
}

type fakeStore struct {
	mu      sync.Mutex
	samples []core.Sample
}

func (s *fakeStore) Append(sample core.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *fakeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

func (s *fakeStore) all() []core.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Sample(nil), s.samples...)
}

// gosched gives the loop goroutine time to park on its timer before the
// mock clock advances past it.
func gosched() { time.Sleep(10 * time.Millisecond) }

func startLoop(t *testing.T, l *Loop) (cancel func()) {
	t.Helper()

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("loop did not stop on cancellation")
		}
	}
}

func TestLoopSamplesEachInterval(t *testing.T) {
	mock := clock.NewMock()
	reader := &fakeReader{}
	store := &fakeStore{}

	l := NewLoop(reader, store, time.Second, 500*time.Millisecond, logger.NewNop())
	l.clock = mock

	cancel := startLoop(t, l)
	defer cancel()

	// the first sample is taken immediately on start
	require.Eventually(t, func() bool { return store.len() == 1 }, time.Second, time.Millisecond)

	for want := 2; want <= 4; want++ {
		gosched()
		mock.Add(time.Second)
		require.Eventually(t, func() bool { return store.len() == want }, time.Second, time.Millisecond)
	}

	samples := store.all()
	require.Len(t, samples, 4)
	for i := 1; i < len(samples); i++ {
		require.Equal(t, samples[i-1].At+1, samples[i].At)
		require.Greater(t, samples[i].RxBytes, samples[i-1].RxBytes)
	}
}

func TestLoopSurvivesReadFailure(t *testing.T) {
	mock := clock.NewMock()
	reader := &fakeReader{errs: []error{nil, errors.New("interface flapped")}}
	store := &fakeStore{}

	l := NewLoop(reader, store, time.Second, 500*time.Millisecond, logger.NewNop())
	l.clock = mock

	cancel := startLoop(t, l)
	defer cancel()

	require.Eventually(t, func() bool { return store.len() == 1 }, time.Second, time.Millisecond)

	// this tick's read fails; nothing is appended
	gosched()
	mock.Add(time.Second)
	gosched()
	require.Equal(t, 1, store.len())

	// the loop keeps going afterwards
	mock.Add(time.Second)
	require.Eventually(t, func() bool { return store.len() == 2 }, time.Second, time.Millisecond)
}

func TestNextSleepDriftCorrection(t *testing.T) {
	require.Equal(t, time.Second, nextSleep(time.Second, 0))
	require.Equal(t, 700*time.Millisecond, nextSleep(time.Second, 300*time.Millisecond))
	require.Equal(t, time.Duration(0), nextSleep(time.Second, time.Second))
	require.Equal(t, time.Duration(0), nextSleep(time.Second, 2*time.Second))
}
