package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// ErrAlreadyRecording is returned by Start while a recording is active.
var ErrAlreadyRecording = errors.New("audio: already recording")

// Options configures a Recorder.
type Options struct {
	SampleRate uint32
	Channels   uint32
	// FrameMS is the capture callback period.
	FrameMS uint32
	// QueueSize bounds the frames in flight between the capture callback
	// and the collector. Frames beyond it are dropped and counted.
	QueueSize int
	Logger    *zap.Logger
}

// frame is one capture period of mono samples, or a flush barrier.
type frame struct {
	samples []float32
	flush   chan struct{}
}

// Recorder keeps a capture stream open on the default microphone and
// accumulates mono float32 samples between Start and Stop.
//
// The malgo callback only converts and enqueues; a collector goroutine owns
// appending to the buffer.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate uint32
	channels   uint32
	frameMS    uint32
	log        *zap.Logger

	frames    chan frame
	recording atomic.Bool
	dropped   atomic.Uint64

	mu     sync.Mutex
	buf    []float32
	active bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRecorder initializes the audio context and starts the capture stream.
// Call Close() when done.
func NewRecorder(opts Options) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	r := newRecorder(opts)
	r.ctx = ctx

	if err := r.open(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func newRecorder(opts Options) *Recorder {
	if opts.FrameMS == 0 {
		opts.FrameMS = 30
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := &Recorder{
		sampleRate: opts.SampleRate,
		channels:   opts.Channels,
		frameMS:    opts.FrameMS,
		log:        opts.Logger,
		frames:     make(chan frame, opts.QueueSize),
		done:       make(chan struct{}),
	}

	r.wg.Add(1)
	go r.collect()
	return r
}

// open starts the continuous capture stream.
func (r *Recorder) open() error {
	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = r.channels
	deviceCfg.SampleRate = r.sampleRate
	deviceCfg.PeriodSizeInMilliseconds = r.frameMS

	callbacks := malgo.DeviceCallbacks{
		Data: r.onData,
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return fmt.Errorf("initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("starting capture device: %w", err)
	}

	r.device = device
	return nil
}

// SampleRate returns the capture sample rate.
func (r *Recorder) SampleRate() uint32 {
	return r.sampleRate
}

// Start resets the buffer and begins accumulating captured frames.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.buf = make([]float32, 0, cap(r.buf))
	r.active = true
	r.mu.Unlock()

	r.dropped.Store(0)
	r.recording.Store(true)
	return nil
}

// Stop ends accumulation and returns the recorded mono samples. It returns
// nil if no recording was active and an empty slice if nothing was captured.
func (r *Recorder) Stop() []float32 {
	if !r.recording.CompareAndSwap(true, false) {
		return nil
	}

	// Everything the callback queued before the flag dropped is ahead of
	// the barrier.
	ack := make(chan struct{})
	select {
	case r.frames <- frame{flush: ack}:
		<-ack
	case <-r.done:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false

	if n := r.dropped.Load(); n > 0 {
		r.log.Warn("audio frames dropped", zap.Uint64("frames", n))
	}

	result := make([]float32, len(r.buf))
	copy(result, r.buf)
	return result
}

// IsRecording returns whether the recorder is currently accumulating audio.
func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

// Dropped returns the frames dropped during the current recording.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close releases all audio resources.
func (r *Recorder) Close() error {
	r.recording.Store(false)

	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}

	r.closeOnce.Do(func() { close(r.done) })
	r.wg.Wait()

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninitializing audio context: %w", err)
		}
		r.ctx.Free()
		r.ctx = nil
	}

	return nil
}

// onData is the malgo callback invoked when audio data is available.
// pSample contains the captured audio frames as raw bytes (float32 format).
func (r *Recorder) onData(_, pSample []byte, frameCount uint32) {
	if !r.recording.Load() {
		return
	}

	sampleCount := frameCount * r.channels
	samples := toMono(bytesToFloat32(pSample, sampleCount), r.channels)

	select {
	case r.frames <- frame{samples: samples}:
	default:
		r.dropped.Add(1)
	}
}

// collect drains the frame queue into the buffer.
func (r *Recorder) collect() {
	defer r.wg.Done()
	for {
		select {
		case f := <-r.frames:
			if f.flush != nil {
				close(f.flush)
				continue
			}
			r.mu.Lock()
			if r.active {
				r.buf = append(r.buf, f.samples...)
			}
			r.mu.Unlock()
		case <-r.done:
			return
		}
	}
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}

// toMono averages interleaved channels into a single channel.
func toMono(samples []float32, channels uint32) []float32 {
	if channels <= 1 {
		return samples
	}
	n := len(samples) / int(channels)
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < int(channels); c++ {
			sum += samples[i*int(channels)+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
