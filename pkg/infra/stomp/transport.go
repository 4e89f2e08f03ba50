package stomp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// ErrClosedByServer はSockJSの close フレーム(c[...])を受け取ったことを表します
var ErrClosedByServer = errors.New("closed by server")

// transport は1本のwebsocket上でSTOMPフレームを読み書きします。
// sockjs が true の場合はSockJSのフレーミング(o, h, a[...], c[...])を解きます
type transport struct {
	ws      *websocket.Conn
	sockjs  bool
	pending []*frame.Frame

	writeMu sync.Mutex
}

func newTransport(ws *websocket.Conn, sockjs bool) *transport {
	return &transport{ws: ws, sockjs: sockjs}
}

// ReadFrame は次のSTOMPフレームを返します。ハートビートは読み飛ばします
func (t *transport) ReadFrame() (*frame.Frame, error) {
	for len(t.pending) == 0 {
		_, msg, err := t.ws.ReadMessage()
		if err != nil {
			return nil, err
		}

		frames, err := t.decode(msg)
		if err != nil {
			return nil, err
		}
		t.pending = frames
	}

	f := t.pending[0]
	t.pending = t.pending[1:]
	return f, nil
}

func (t *transport) decode(msg []byte) ([]*frame.Frame, error) {
	if !t.sockjs {
		return parseFrames(msg)
	}
	if len(msg) == 0 {
		return nil, nil
	}

	switch msg[0] {
	case 'o', 'h':
		return nil, nil
	case 'a':
		var parts []string
		if err := json.Unmarshal(msg[1:], &parts); err != nil {
			return nil, fmt.Errorf("sockjs array frame: %w", err)
		}
		var frames []*frame.Frame
		for _, p := range parts {
			fs, err := parseFrames([]byte(p))
			if err != nil {
				return nil, err
			}
			frames = append(frames, fs...)
		}
		return frames, nil
	case 'c':
		return nil, fmt.Errorf("%w: %s", ErrClosedByServer, msg[1:])
	default:
		return nil, fmt.Errorf("unknown sockjs frame type %q", msg[0])
	}
}

// WriteFrame はフレームを1つ送信します。複数のゴルーチンから呼べます
func (t *transport) WriteFrame(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}

	payload := buf.Bytes()
	if t.sockjs {
		var err error
		payload, err = json.Marshal([]string{buf.String()})
		if err != nil {
			return err
		}
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return t.ws.WriteMessage(websocket.TextMessage, payload)
}

func (t *transport) SetReadDeadline(d time.Time) error {
	return t.ws.SetReadDeadline(d)
}

func (t *transport) Close() error {
	return t.ws.Close()
}

// parseFrames は1メッセージに含まれるSTOMPフレームをすべて取り出します
func parseFrames(data []byte) ([]*frame.Frame, error) {
	r := frame.NewReader(bytes.NewReader(data))

	var frames []*frame.Frame
	for {
		f, err := r.Read()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("stomp frame: %w", err)
		}
		if f == nil {
			continue // heart-beat
		}
		frames = append(frames, f)
	}
}
