// Package daemon runs the long-lived scribe process: the audio
// pipeline, the inference services, and the control socket.
package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/openscribe/scribe/internal/audio"
	"github.com/openscribe/scribe/internal/bus"
	"github.com/openscribe/scribe/internal/chat"
	"github.com/openscribe/scribe/internal/clipboard"
	"github.com/openscribe/scribe/internal/config"
	"github.com/openscribe/scribe/internal/inference"
	"github.com/openscribe/scribe/internal/model"
	"github.com/openscribe/scribe/internal/pipeline"
	"github.com/openscribe/scribe/internal/recognizer"
)

type Daemon struct {
	manager  *config.Manager
	pipeline *pipeline.Pipeline
	clip     clipboard.Writer

	ctx    context.Context
	cancel context.CancelFunc

	// svcMu guards the services rebuilt on config reload. Configs are
	// immutable values: applying new settings means constructing new
	// services and swapping these references.
	svcMu     sync.RWMutex
	client    *inference.Client
	processor inference.Processor
	chatSess  *chat.Session

	trMu       sync.Mutex
	transcript strings.Builder
}

func New() (*Daemon, error) {
	manager, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg := manager.Get()

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		manager: manager,
		clip:    clipboard.System{},
		ctx:     ctx,
		cancel:  cancel,
	}
	d.applyConfig(cfg)

	source := audio.NewCaptureSource(audio.Config{
		SampleRate: cfg.Audio.SampleRate,
		BlockSize:  cfg.Audio.BlockSize,
		Channels:   cfg.Audio.Channels,
		Format:     cfg.Audio.Format,
		Device:     cfg.Audio.Device,
	})
	d.pipeline = pipeline.New(source, engineFactory(cfg), d)

	return d, nil
}

// engineFactory defers the recognizer load so `serve` can report model
// problems as an initialization failure.
func engineFactory(cfg *config.Config) pipeline.EngineFactory {
	switch cfg.Recognizer.Backend {
	case "vosk-server":
		return func() (recognizer.Engine, error) {
			return recognizer.NewServerEngine(cfg.Recognizer.ServerURL, cfg.Audio.SampleRate), nil
		}
	default:
		return func() (recognizer.Engine, error) {
			return recognizer.NewLocalEngine(cfg.Recognizer.ModelPath, float64(cfg.Audio.SampleRate))
		}
	}
}

// applyConfig rebuilds the inference-side services from a new
// configuration value and swaps them in atomically.
func (d *Daemon) applyConfig(cfg *config.Config) {
	client := inference.NewClient(cfg.InferenceClientConfig())
	processor, err := inference.NewProcessor(cfg.InferenceClientConfig())
	if err != nil {
		log.Printf("daemon: inference provider misconfigured, falling back to llamacpp client: %v", err)
		processor = client
	}

	d.svcMu.Lock()
	d.client = client
	d.processor = processor
	d.chatSess = chat.NewSession(client)
	d.svcMu.Unlock()
}

// Pipeline observer: events arrive on the consumer goroutine.

func (d *Daemon) OnPartial(result model.TranscriptionResult) {
	log.Printf("daemon: partial: %s", result.Text)
}

func (d *Daemon) OnFinal(result model.TranscriptionResult) {
	d.trMu.Lock()
	if d.transcript.Len() > 0 {
		d.transcript.WriteString(" ")
	}
	d.transcript.WriteString(result.Text)
	d.trMu.Unlock()
	log.Printf("daemon: final: %s", result.Text)
}

func (d *Daemon) OnError(msg string) {
	log.Printf("daemon: pipeline error: %s", msg)
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	if err := d.pipeline.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer d.pipeline.Shutdown()

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.manager.Watch(d.ctx, d.applyConfig); err != nil {
		log.Printf("daemon: config watch unavailable: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("daemon: received signal %v, shutting down", sig)
		d.cancel()
	}()

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("daemon: listening on control socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("daemon: shutdown requested")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	cmd, arg, err := bus.ParseCommand(line)
	if err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}

	switch cmd {
	case bus.CmdToggle:
		d.toggle(c)
	case bus.CmdStatus:
		d.trMu.Lock()
		chars := d.transcript.Len()
		d.trMu.Unlock()
		fmt.Fprintf(c, "STATUS state=%s transcript_chars=%d\n", d.pipeline.State(), chars)
	case bus.CmdProcess:
		d.process(c, arg)
	case bus.CmdChat:
		d.chatTurn(c, arg)
	case bus.CmdCancel:
		d.svcMu.RLock()
		d.processor.Cancel()
		d.client.Cancel()
		d.svcMu.RUnlock()
		fmt.Fprint(c, "OK cancel requested\n")
	case bus.CmdStop:
		fmt.Fprint(c, "OK stopping\n")
		d.cancel()
	default:
		fmt.Fprintf(c, "ERR unknown command %q\n", cmd)
	}
}

func (d *Daemon) toggle(c net.Conn) {
	if d.pipeline.IsRecording() {
		if err := d.pipeline.Stop(); err != nil {
			fmt.Fprintf(c, "ERR stop: %v\n", err)
			return
		}
		fmt.Fprint(c, "OK recording stopped\n")
		return
	}
	if err := d.pipeline.Start(); err != nil {
		fmt.Fprintf(c, "ERR start: %v\n", err)
		return
	}
	fmt.Fprint(c, "OK recording started\n")
}

// process runs the accumulated transcript (or an explicit custom
// prompt argument) through the inference backend. Blocking is fine
// here: each control connection is served on its own goroutine.
func (d *Daemon) process(c net.Conn, customPrompt string) {
	d.trMu.Lock()
	transcript := d.transcript.String()
	d.trMu.Unlock()

	if strings.TrimSpace(transcript) == "" {
		fmt.Fprint(c, "ERR no transcript captured yet\n")
		return
	}

	d.svcMu.RLock()
	processor := d.processor
	d.svcMu.RUnlock()

	result := processor.Process(model.ProcessingRequest{
		Transcript:   transcript,
		CustomPrompt: customPrompt,
	}, func(status string) {
		log.Printf("daemon: inference: %s", status)
	})

	if !result.IsSuccess() {
		fmt.Fprintf(c, "ERR %s\n", result.TextOrError())
		return
	}

	if err := d.clip.Write(result.ProcessedText); err != nil {
		log.Printf("daemon: %v", err)
	}

	// Processed transcript is consumed; the next session starts clean.
	d.trMu.Lock()
	d.transcript.Reset()
	d.trMu.Unlock()

	fmt.Fprintf(c, "OK %.0fms\n%s\n", result.ProcessingTimeMs, result.ProcessedText)
}

func (d *Daemon) chatTurn(c net.Conn, message string) {
	d.svcMu.RLock()
	sess := d.chatSess
	d.svcMu.RUnlock()

	resp := sess.SendMessage(message, func(status string) {
		log.Printf("daemon: chat: %s", status)
	})
	if !resp.Success {
		fmt.Fprintf(c, "ERR %s\n", resp.Err)
		return
	}
	fmt.Fprintf(c, "OK\n%s\n", resp.Message)
}
