// Package pipeline owns the capture-to-recognition loop: a bounded
// frame queue fed by the audio source callback and drained by one
// consumer goroutine that drives the recognizer adapter.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openscribe/scribe/internal/audio"
	"github.com/openscribe/scribe/internal/model"
	"github.com/openscribe/scribe/internal/recognizer"
)

type State string

const (
	Idle      State = "idle"
	Recording State = "recording"
	Stopping  State = "stopping"
)

var (
	ErrNotInitialized     = errors.New("pipeline not initialized")
	ErrAlreadyInitialized = errors.New("pipeline already initialized")
	ErrAlreadyRecording   = errors.New("already recording")
	ErrNotRecording       = errors.New("not recording")
)

// Observer receives transcription events. Calls arrive on the
// pipeline's consumer goroutine; implementations dispatch to their own
// execution context and must not call back into Stop.
type Observer interface {
	OnPartial(model.TranscriptionResult)
	OnFinal(model.TranscriptionResult)
	OnError(string)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) OnPartial(model.TranscriptionResult) {}
func (NopObserver) OnFinal(model.TranscriptionResult)   {}
func (NopObserver) OnError(string)                      {}

// EngineFactory defers the (possibly expensive) recognizer load to
// Initialize time.
type EngineFactory func() (recognizer.Engine, error)

const (
	defaultQueueSize   = 50
	defaultJoinTimeout = 2 * time.Second
	pollInterval       = 100 * time.Millisecond
)

type Pipeline struct {
	source    audio.Source
	newEngine EngineFactory
	observer  Observer

	queueSize   int
	joinTimeout time.Duration

	mu      sync.Mutex // guards state, adapter, frames, done
	state   State
	adapter *recognizer.Adapter
	frames  chan []byte
	done    chan struct{}

	running atomic.Bool
}

type Option func(*Pipeline)

func WithQueueSize(n int) Option {
	return func(p *Pipeline) { p.queueSize = n }
}

func WithJoinTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.joinTimeout = d }
}

func New(source audio.Source, newEngine EngineFactory, observer Observer, opts ...Option) *Pipeline {
	if observer == nil {
		observer = NopObserver{}
	}
	p := &Pipeline{
		source:      source,
		newEngine:   newEngine,
		observer:    observer,
		queueSize:   defaultQueueSize,
		joinTimeout: defaultJoinTimeout,
		state:       Idle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize loads the recognizer. Must be called exactly once before
// Start; fails when the model cannot be loaded.
func (p *Pipeline) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.adapter != nil {
		return ErrAlreadyInitialized
	}
	engine, err := p.newEngine()
	if err != nil {
		return fmt.Errorf("initialize recognizer: %w", err)
	}
	p.adapter = recognizer.NewAdapter(engine)
	return nil
}

// Start opens the audio source and spawns the consumer goroutine.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.adapter == nil {
		return ErrNotInitialized
	}
	if p.state != Idle {
		return ErrAlreadyRecording
	}

	frames := make(chan []byte, p.queueSize)
	done := make(chan struct{})

	p.running.Store(true)
	if err := p.source.Open(p.enqueue(frames)); err != nil {
		p.running.Store(false)
		return fmt.Errorf("open audio source: %w", err)
	}

	p.frames = frames
	p.done = done
	p.state = Recording
	go p.consume(frames, done)

	log.Printf("pipeline: recording started")
	return nil
}

// enqueue is the audio source callback. Its only job is to push bytes
// onto the bounded queue: it never touches the recognizer or the
// observer's result callbacks, so the capture thread cannot be blocked
// by downstream work. Full queue drops the frame.
func (p *Pipeline) enqueue(frames chan []byte) audio.FrameCallback {
	return func(data []byte, status string) {
		if status != "" {
			p.observer.OnError(fmt.Sprintf("audio source: %s", status))
		}
		if data == nil || !p.running.Load() {
			return
		}
		select {
		case frames <- data:
		default:
			log.Printf("pipeline: frame dropped, queue full")
		}
	}
}

// consume drains the frame queue and feeds the recognizer. A nil frame
// is the stop sentinel; the short poll timeout lets the loop notice a
// cleared running flag even when the sentinel could not be queued.
func (p *Pipeline) consume(frames <-chan []byte, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case data := <-frames:
			if data == nil {
				return
			}
			p.feed(data)
		case <-time.After(pollInterval):
			if !p.running.Load() {
				return
			}
		}
	}
}

// feed runs one frame through the adapter. Errors are reported and the
// frame skipped; they never terminate the consumer loop.
func (p *Pipeline) feed(data []byte) {
	result, ok, err := p.adapter.Feed(data)
	if err != nil {
		p.observer.OnError(fmt.Sprintf("recognition: %v", err))
		return
	}
	if !ok {
		return
	}
	if result.IsPartial {
		p.observer.OnPartial(result)
	} else {
		p.observer.OnFinal(result)
	}
}

// Stop tears the session down and always returns the pipeline to Idle.
// Errors met while closing the source, joining the consumer, or
// flushing the recognizer are reported through the observer, not
// returned: only an illegal state fails Stop.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Recording {
		return ErrNotRecording
	}
	p.state = Stopping
	p.running.Store(false)

	if err := p.source.Close(); err != nil {
		p.observer.OnError(fmt.Sprintf("close audio source: %v", err))
	}

	// Wake the consumer; if the queue is full the poll timeout covers it.
	select {
	case p.frames <- nil:
	default:
	}

	select {
	case <-p.done:
	case <-time.After(p.joinTimeout):
		p.observer.OnError(fmt.Sprintf("consumer did not exit within %v", p.joinTimeout))
	}

	if result, ok, err := p.adapter.Flush(); err != nil {
		p.observer.OnError(fmt.Sprintf("recognizer flush: %v", err))
	} else if ok {
		p.observer.OnFinal(result)
	}

	p.frames = nil
	p.done = nil
	p.state = Idle

	log.Printf("pipeline: recording stopped")
	return nil
}

// IsRecording reads the running flag without taking the state lock.
func (p *Pipeline) IsRecording() bool {
	return p.running.Load()
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Shutdown stops an active session and releases the recognizer.
// Safe to call multiple times.
func (p *Pipeline) Shutdown() {
	if p.IsRecording() {
		if err := p.Stop(); err != nil {
			log.Printf("pipeline: shutdown stop: %v", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapter != nil {
		if err := p.adapter.Close(); err != nil {
			log.Printf("pipeline: close recognizer: %v", err)
		}
		p.adapter = nil
	}
}
