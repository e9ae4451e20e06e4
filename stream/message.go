package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	fractal "github.com/marben/dist_fractal"
)

// Message types sent as JSON text.
const (
	TypeError      = "error"
	TypeTileFailed = "tileFailed"
	TypeSubmitted  = "submitted"
	TypeDone       = "done"
)

// Message is a JSON control message from server to viewer.
type Message struct {
	Type       string `json:"type"`
	Generation uint64 `json:"generation,omitempty"`
	StartRow   int    `json:"startRow,omitempty"`
	RowCount   int    `json:"rowCount,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SubmittedMessage announces a new generation and its image size.
func SubmittedMessage(gen fractal.GenerationID, v fractal.Viewport) Message {
	return Message{Type: TypeSubmitted, Generation: uint64(gen), Width: v.PixelWidth, Height: v.PixelHeight}
}

// ErrorMessage reports a rejected request or a failed render.
func ErrorMessage(gen fractal.GenerationID, err error) Message {
	return Message{Type: TypeError, Generation: uint64(gen), Error: err.Error()}
}

// ReadParams reads one JSON object of render parameters. Values may be JSON
// strings or bare numbers; both become their textual form.
func ReadParams(ctx context.Context, conn *websocket.Conn) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := wsjson.Read(ctx, conn, &raw); err != nil {
		return nil, err
	}
	m := make(map[string]string, len(raw))
	for key, v := range raw {
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '"' {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, fmt.Errorf("param %q: %w", key, err)
			}
			m[key] = s
			continue
		}
		m[key] = string(v)
	}
	return m, nil
}
