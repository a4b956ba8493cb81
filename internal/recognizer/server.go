package recognizer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// ServerEngine speaks the vosk-server websocket protocol: binary PCM
// frames out, one JSON hypothesis back per frame, {"eof":1} to flush.
// The server closes the stream after a flush, so the connection is
// re-established lazily on the next frame.
type ServerEngine struct {
	url        string
	sampleRate int
	conn       *websocket.Conn
}

const serverDialTimeout = 5 * time.Second

func NewServerEngine(url string, sampleRate int) *ServerEngine {
	return &ServerEngine{url: url, sampleRate: sampleRate}
}

func (e *ServerEngine) ensureConn() error {
	if e.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: serverDialTimeout}
	conn, _, err := dialer.Dial(e.url, nil)
	if err != nil {
		return fmt.Errorf("dial recognizer server %s: %w", e.url, err)
	}

	cfg := fmt.Sprintf(`{"config": {"sample_rate": %d}}`, e.sampleRate)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cfg)); err != nil {
		conn.Close()
		return fmt.Errorf("send recognizer config: %w", err)
	}

	e.conn = conn
	return nil
}

func (e *ServerEngine) Accept(frame []byte) (bool, string, error) {
	if err := e.ensureConn(); err != nil {
		return false, "", err
	}
	if err := e.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		e.drop()
		return false, "", fmt.Errorf("send frame: %w", err)
	}

	raw, err := e.readHypothesis()
	if err != nil {
		e.drop()
		return false, "", err
	}
	return isFinalHypothesis(raw), raw, nil
}

func (e *ServerEngine) FinalHypothesis() (string, error) {
	if e.conn == nil {
		// Nothing streamed since the last flush.
		return `{"text": ""}`, nil
	}
	defer e.drop()

	if err := e.conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return "", fmt.Errorf("send eof: %w", err)
	}
	return e.readHypothesis()
}

func (e *ServerEngine) Close() error {
	e.drop()
	return nil
}

func (e *ServerEngine) readHypothesis() (string, error) {
	_, msg, err := e.conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read hypothesis: %w", err)
	}
	return string(msg), nil
}

func (e *ServerEngine) drop() {
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
}

// isFinalHypothesis distinguishes {"text": ...} results from
// {"partial": ...} ones by key presence.
func isFinalHypothesis(raw string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return false
	}
	_, ok := fields["text"]
	return ok
}
