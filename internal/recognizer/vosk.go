package recognizer

import (
	"fmt"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

// LocalEngine runs an in-process VOSK recognizer loaded from a model
// directory. The model is loaded once and shared for the lifetime of
// the engine.
type LocalEngine struct {
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer

	closeOnce sync.Once
}

// NewLocalEngine loads the VOSK model at modelPath. The directory shape
// is validated before the (expensive) native load.
func NewLocalEngine(modelPath string, sampleRate float64) (*LocalEngine, error) {
	if err := ValidateModelDir(modelPath); err != nil {
		return nil, err
	}

	m, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model %s: %w", modelPath, err)
	}

	rec, err := vosk.NewRecognizer(m, sampleRate)
	if err != nil {
		m.Free()
		return nil, fmt.Errorf("create vosk recognizer: %w", err)
	}

	return &LocalEngine{model: m, rec: rec}, nil
}

func (e *LocalEngine) Accept(frame []byte) (bool, string, error) {
	if e.rec.AcceptWaveform(frame) != 0 {
		return true, e.rec.Result(), nil
	}
	return false, e.rec.PartialResult(), nil
}

func (e *LocalEngine) FinalHypothesis() (string, error) {
	return e.rec.FinalResult(), nil
}

func (e *LocalEngine) Close() error {
	e.closeOnce.Do(func() {
		e.rec.Free()
		e.model.Free()
	})
	return nil
}
