package transcribe

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/pushtalk/internal/models"
)

type fakeEngine struct {
	path         string
	multilingual bool
	segs         []Segment
	err          error
	delay        time.Duration

	calls    atomic.Int32
	finished atomic.Bool
	closed   atomic.Bool
}

func (f *fakeEngine) Transcribe(samples []float32, opts Options) (Result, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	defer f.finished.Store(true)
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Text: joinSegments(f.segs), Language: "en", Segments: f.segs}, nil
}

func (f *fakeEngine) Multilingual() bool { return f.multilingual }

func (f *fakeEngine) Close() error {
	f.closed.Store(true)
	return nil
}

type harness struct {
	mu      sync.Mutex
	loaded  []*fakeEngine
	frees   int
	loadErr map[string]error
	english map[string]bool
}

func newHarness() *harness {
	return &harness{loadErr: map[string]error{}, english: map[string]bool{}}
}

func (h *harness) manager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(ManagerOptions{
		Loader: func(path string) (Engine, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if err := h.loadErr[path]; err != nil {
				return nil, err
			}
			e := &fakeEngine{
				path:         path,
				multilingual: !h.english[path],
				segs:         []Segment{{Text: "Hello"}, {Text: " world"}},
			}
			h.loaded = append(h.loaded, e)
			return e, nil
		},
	})
	m.resolve = func(_ context.Context, ref string) (models.Resolved, error) {
		return models.Resolved{Model: models.Model{Name: ref, Translates: true}, Path: ref}, nil
	}
	m.freeHeap = func() {
		h.mu.Lock()
		h.frees++
		h.mu.Unlock()
	}
	return m
}

func (h *harness) loads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.loaded)
}

func speech(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*300*float64(i)/16000))
	}
	return out
}

func TestManagerLoadSameModelIsNoop(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	require.NoError(t, m.Load(context.Background(), "large-v3-turbo", false))
	require.NoError(t, m.Load(context.Background(), "large-v3-turbo", false))

	assert.Equal(t, 1, h.loads())
	assert.False(t, h.loaded[0].closed.Load())
	assert.Equal(t, 0, h.frees)
	assert.Equal(t, "large-v3-turbo", m.Current())
}

func TestManagerSwapReleasesPrevious(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	require.NoError(t, m.Load(context.Background(), "large-v3-turbo", false))
	require.NoError(t, m.Load(context.Background(), "medium", true))

	require.Equal(t, 2, h.loads())
	assert.True(t, h.loaded[0].closed.Load(), "previous model must be closed")
	assert.False(t, h.loaded[1].closed.Load())
	assert.Equal(t, 1, h.frees)
	assert.Equal(t, "medium", m.Current())
}

func TestManagerToggleTwiceRestoresModel(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	ctx := context.Background()

	require.NoError(t, m.Load(ctx, "large-v3-turbo", false))
	require.NoError(t, m.Load(ctx, "medium", true))
	require.NoError(t, m.Load(ctx, "large-v3-turbo", false))

	assert.Equal(t, "large-v3-turbo", m.Current())
}

func TestManagerEnglishOnlyCannotTranslate(t *testing.T) {
	h := newHarness()
	h.english["base.en"] = true
	m := h.manager(t)

	err := m.Load(context.Background(), "base.en", true)
	require.Error(t, err)
	assert.Empty(t, m.Current())
	require.Equal(t, 1, h.loads())
	assert.True(t, h.loaded[0].closed.Load())

	require.NoError(t, m.Load(context.Background(), "base.en", false))
	assert.Error(t, m.Load(context.Background(), "base.en", true))
	assert.Equal(t, "base.en", m.Current())
}

func TestManagerLoadFailureLeavesNoModel(t *testing.T) {
	h := newHarness()
	h.loadErr["medium"] = errors.New("corrupt file")
	m := h.manager(t)
	ctx := context.Background()

	require.NoError(t, m.Load(ctx, "large-v3-turbo", false))
	require.Error(t, m.Load(ctx, "medium", true))
	assert.Empty(t, m.Current())

	_, err := m.Transcribe(ctx, speech(1600), Options{})
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestManagerResolveError(t *testing.T) {
	var loads int
	m := NewManager(ManagerOptions{
		ModelsDir: t.TempDir(),
		Loader: func(string) (Engine, error) {
			loads++
			return &fakeEngine{}, nil
		},
	})
	err := m.Load(context.Background(), "no-such-model", false)
	assert.ErrorIs(t, err, models.ErrUnknownModel)
	assert.Zero(t, loads)
}

func TestManagerTranscribeJoinsSegments(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	require.NoError(t, m.Load(context.Background(), "large-v3-turbo", false))

	res, err := m.Transcribe(context.Background(), speech(1600), Options{})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", res.Text)
	assert.Len(t, res.Segments, 2)
}

func TestManagerVADSilenceSkipsModel(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	require.NoError(t, m.Load(context.Background(), "large-v3-turbo", false))

	res, err := m.Transcribe(context.Background(), make([]float32, 16000), Options{
		VAD:              true,
		VADThresholdDBFS: -50,
		SampleRate:       16000,
	})
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, int32(0), h.loaded[0].calls.Load())
}

func TestManagerTranscribeWithoutModel(t *testing.T) {
	m := newHarness().manager(t)
	_, err := m.Transcribe(context.Background(), speech(10), Options{})
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestManagerTranscribeCancelledContext(t *testing.T) {
	m := newHarness().manager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Transcribe(ctx, speech(10), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManagerSwapWaitsForInference(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx, "large-v3-turbo", false))
	first := h.loaded[0]
	first.delay = 50 * time.Millisecond

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_, _ = m.Transcribe(ctx, speech(1600), Options{})
		close(done)
	}()
	<-started
	require.Eventually(t, func() bool { return first.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, m.Load(ctx, "medium", true))
	assert.True(t, first.finished.Load(), "swap completed while inference was still running")
	assert.True(t, first.closed.Load())
	<-done
}

func TestManagerClose(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	require.NoError(t, m.Load(context.Background(), "large-v3-turbo", false))
	require.NoError(t, m.Close())
	assert.True(t, h.loaded[0].closed.Load())
	assert.Empty(t, m.Current())
	require.NoError(t, m.Close())
}
