// Package recognizer adapts stateful incremental speech engines into
// transcription results. Engines report hypotheses as JSON strings:
// {"partial": "..."} while an utterance is in progress and
// {"text": "..."} once it is finalized.
package recognizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openscribe/scribe/internal/model"
)

// Engine is a black-box incremental recognizer. Accept feeds one raw
// audio frame and reports whether it finalized an utterance, together
// with the JSON-encoded hypothesis. FinalHypothesis flushes trailing
// unfinalized speech into a last final hypothesis.
//
// Engines are not safe for concurrent use; the pipeline drives them
// from a single consumer goroutine.
type Engine interface {
	Accept(frame []byte) (final bool, hypothesis string, err error)
	FinalHypothesis() (string, error)
	Close() error
}

// requiredModelResources are the sub-directories a recognizer model
// directory must contain to be loadable.
var requiredModelResources = []string{"am", "conf", "graph", "ivector"}

// ValidateModelDir checks that path exists and has the expected model
// layout before an engine is constructed from it.
func ValidateModelDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("model directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("model path %s is not a directory", path)
	}
	for _, res := range requiredModelResources {
		if _, err := os.Stat(filepath.Join(path, res)); err != nil {
			return fmt.Errorf("model directory %s missing %s: %w", path, res, err)
		}
	}
	return nil
}

type hypothesis struct {
	Partial string `json:"partial"`
	Text    string `json:"text"`
}

// Adapter wraps an Engine and turns its JSON hypotheses into
// TranscriptionResult values. Empty hypotheses are dropped.
type Adapter struct {
	engine Engine
}

func NewAdapter(engine Engine) *Adapter {
	return &Adapter{engine: engine}
}

// Feed processes one audio frame. The boolean reports whether a result
// was produced; empty partial and final texts yield no result.
func (a *Adapter) Feed(frame []byte) (model.TranscriptionResult, bool, error) {
	final, raw, err := a.engine.Accept(frame)
	if err != nil {
		return model.TranscriptionResult{}, false, fmt.Errorf("accept frame: %w", err)
	}
	return parseHypothesis(raw, final)
}

// Flush finalizes the current utterance so trailing speech is not lost
// when recording stops.
func (a *Adapter) Flush() (model.TranscriptionResult, bool, error) {
	raw, err := a.engine.FinalHypothesis()
	if err != nil {
		return model.TranscriptionResult{}, false, fmt.Errorf("final flush: %w", err)
	}
	return parseHypothesis(raw, true)
}

func (a *Adapter) Close() error {
	return a.engine.Close()
}

func parseHypothesis(raw string, final bool) (model.TranscriptionResult, bool, error) {
	var hyp hypothesis
	if err := json.Unmarshal([]byte(raw), &hyp); err != nil {
		return model.TranscriptionResult{}, false, fmt.Errorf("parse hypothesis %q: %w", raw, err)
	}

	text := hyp.Partial
	if final {
		text = hyp.Text
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.TranscriptionResult{}, false, nil
	}

	return model.TranscriptionResult{
		Text:      text,
		IsPartial: !final,
		Timestamp: time.Now(),
	}, true, nil
}
