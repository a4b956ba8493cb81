// Package audio captures raw PCM frames from the system input device
// and delivers them through a registered callback.
package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	SampleRate int
	BlockSize  int
	Channels   int
	Format     string
	Device     string
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		BlockSize:  8000,
		Channels:   1,
		Format:     "s16",
	}
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("invalid BlockSize: %d", c.BlockSize)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", c.Channels)
	}
	if c.Format == "" {
		return fmt.Errorf("invalid Format: empty")
	}
	return nil
}

// FrameCallback receives captured audio. Calls arrive on the source's
// own goroutine; data is owned by the receiver. A non-empty status
// reports a device anomaly and may arrive with nil data.
type FrameCallback func(data []byte, status string)

// Source is a single-stream audio input with callback delivery.
type Source interface {
	Open(cb FrameCallback) error
	Close() error
}

// CaptureSource records from the default (or configured) input device
// by driving pw-record and slicing its stdout into BlockSize frames.
type CaptureSource struct {
	config Config
	open   atomic.Bool

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewCaptureSource(config Config) *CaptureSource {
	return &CaptureSource{config: config}
}

func (s *CaptureSource) Open(cb FrameCallback) error {
	if s.open.Load() {
		return errors.New("audio source already open")
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if cb == nil {
		return errors.New("frame callback required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "pw-record", s.buildArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start pw-record: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.cancel = cancel
	s.mu.Unlock()
	s.open.Store(true)

	// Device anomalies show up on stderr; surface each line verbatim.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			cb(nil, scanner.Text())
		}
	}()

	s.wg.Add(1)
	go s.captureLoop(ctx, stdout, cb)

	return nil
}

func (s *CaptureSource) captureLoop(ctx context.Context, stdout io.Reader, cb FrameCallback) {
	defer func() {
		s.open.Store(false)
		s.mu.Lock()
		if s.cmd != nil {
			_ = s.cmd.Wait()
			s.cmd = nil
		}
		s.cancel = nil
		s.mu.Unlock()
		s.wg.Done()
	}()

	buffer := make([]byte, s.config.BlockSize)
	for {
		n, readErr := io.ReadFull(stdout, buffer)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buffer[:n])
			cb(frame, "")
		}

		if readErr != nil {
			if ctx.Err() != nil || errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				return
			}
			cb(nil, fmt.Sprintf("read audio: %v", readErr))
			return
		}
	}
}

func (s *CaptureSource) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *CaptureSource) IsOpen() bool {
	return s.open.Load()
}

func (s *CaptureSource) buildArgs() []string {
	args := []string{
		"--format", s.config.Format,
		"--rate", strconv.Itoa(s.config.SampleRate),
		"--channels", strconv.Itoa(s.config.Channels),
		"-", // stdout
	}
	if s.config.Device != "" {
		args = append(args, "--target", s.config.Device)
	}
	return args
}

// CheckAvailable verifies the capture tooling is installed and the
// audio daemon responds.
func CheckAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(checkCtx, "pw-cli", "info").Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
