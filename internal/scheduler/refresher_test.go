package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satfarm/farmcarbon/internal/analysis"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   []string
	refresh []bool
	fail    map[string]bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, farmerID string, refresh bool) (*analysis.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, farmerID)
	f.refresh = append(f.refresh, refresh)
	if f.fail[farmerID] {
		return nil, errors.New("upstream down")
	}
	return &analysis.Report{FarmerID: farmerID}, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// blockingAnalyzer waits for its context to end.
type blockingAnalyzer struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, _ string, _ bool) (*analysis.Report, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestNew_Validation(t *testing.T) {
	_, err := New("not a schedule", nil, &fakeAnalyzer{}, zerolog.Nop())
	assert.ErrorContains(t, err, "invalid schedule")

	_, err = New("", nil, nil, zerolog.Nop())
	assert.Error(t, err)

	r, err := New("", []string{"f1"}, &fakeAnalyzer{}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, r.Stop(context.Background()))
}

func TestRunOnce(t *testing.T) {
	a := &fakeAnalyzer{fail: map[string]bool{"f2": true}}
	r, err := New("0 */2 * * *", []string{"f1", "f2", "f3"}, a, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2, r.RunOnce(context.Background()))
	assert.Equal(t, []string{"f1", "f2", "f3"}, a.calls)
	assert.Equal(t, []bool{true, true, true}, a.refresh)
}

func TestRunOnce_CancelledContext(t *testing.T) {
	a := &fakeAnalyzer{}
	r, err := New("", []string{"f1", "f2"}, a, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, r.RunOnce(ctx))
	assert.Equal(t, 0, a.callCount())
}

func TestStartStop(t *testing.T) {
	a := &fakeAnalyzer{}
	r, err := New("@every 1s", []string{"f1"}, a, zerolog.Nop())
	require.NoError(t, err)

	r.Start()
	r.Start()
	assert.False(t, r.Next().IsZero())

	require.Eventually(t, func() bool { return a.callCount() >= 1 }, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	n := a.callCount()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, n, a.callCount())
}

func TestStop_ContextExpires(t *testing.T) {
	b := &blockingAnalyzer{started: make(chan struct{})}
	r, err := New("@every 1s", []string{"f1"}, b, zerolog.Nop())
	require.NoError(t, err)

	r.Start()
	select {
	case <-b.started:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Stop(ctx), context.DeadlineExceeded)
}

func TestCronLogger(t *testing.T) {
	var calls atomic.Int32
	logger := zerolog.New(zerolog.SyncWriter(writerFunc(func(p []byte) (int, error) {
		calls.Add(1)
		return len(p), nil
	}))).Level(zerolog.DebugLevel)

	l := cronLogger{logger: logger}
	l.Info("schedule", "entry", 1)
	l.Error(errors.New("boom"), "panic", "entry", 1)
	assert.Equal(t, int32(2), calls.Load())
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
