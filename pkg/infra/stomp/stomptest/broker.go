// Package stomptest はテストとモックフィード用の小さなSTOMPブローカーです。
// 素のwebsocketとSockJSのwebsocketトランスポートを受け付けます
package stomptest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
)

// Broker は http.Handler として basePath 以下でSTOMP接続を受け付けます
//
//	<basePath>/info                          SockJSのinfo
//	<basePath>/<server>/<session>/websocket  SockJSのwebsocketトランスポート
//	<basePath>/websocket                     素のwebsocket
type Broker struct {
	basePath string
	sockjs   bool
	upgrader websocket.Upgrader

	mu         sync.Mutex
	sessions   map[*session]struct{}
	commands   []string
	transports []string
	messageSeq int
}

type Option func(*Broker)

// WithSockJS はSockJSの受付を切り替えます。false の場合 /info は404を返します
func WithSockJS(enabled bool) Option {
	return func(b *Broker) { b.sockjs = enabled }
}

func NewBroker(basePath string, opts ...Option) *Broker {
	b := &Broker{
		basePath: strings.TrimSuffix(basePath, "/"),
		sockjs:   true,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel, ok := strings.CutPrefix(r.URL.Path, b.basePath)
	if !ok {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(strings.Trim(rel, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "info" && b.sockjs:
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"websocket":     true,
			"cookie_needed": false,
			"origins":       []string{"*:*"},
			"entropy":       rand.Uint32(),
		})
	case len(parts) == 1 && parts[0] == "websocket":
		b.serveWebsocket(w, r, false)
	case len(parts) == 3 && parts[2] == "websocket" && b.sockjs:
		b.serveWebsocket(w, r, true)
	default:
		http.NotFound(w, r)
	}
}

func (b *Broker) serveWebsocket(w http.ResponseWriter, r *http.Request, sockjs bool) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s := &session{ws: ws, sockjs: sockjs, subs: make(map[string]string)}
	kind := "websocket"
	if sockjs {
		kind = "sockjs"
	}

	b.mu.Lock()
	b.sessions[s] = struct{}{}
	b.transports = append(b.transports, kind)
	b.mu.Unlock()

	defer b.remove(s)

	if sockjs {
		if err := s.writeRaw([]byte("o")); err != nil {
			return
		}
	}
	b.readLoop(s)
}

func (b *Broker) readLoop(s *session) {
	for {
		_, msg, err := s.ws.ReadMessage()
		if err != nil {
			return
		}

		frames, err := s.decode(msg)
		if err != nil {
			_ = s.write(frame.New(frame.ERROR, frame.Message, err.Error()))
			return
		}

		for _, f := range frames {
			if !b.handle(s, f) {
				return
			}
		}
	}
}

// handle はクライアントからのフレームを1つ処理します。接続を終えるなら false を返します
func (b *Broker) handle(s *session, f *frame.Frame) bool {
	b.mu.Lock()
	b.commands = append(b.commands, f.Command)
	b.mu.Unlock()

	switch f.Command {
	case frame.CONNECT, frame.STOMP:
		return s.write(frame.New(frame.CONNECTED,
			frame.Version, "1.2",
			frame.HeartBeat, "0,0",
			frame.Server, "stomptest")) == nil
	case frame.SUBSCRIBE:
		s.mu.Lock()
		s.subs[f.Header.Get(frame.Id)] = f.Header.Get(frame.Destination)
		s.mu.Unlock()
	case frame.UNSUBSCRIBE:
		s.mu.Lock()
		delete(s.subs, f.Header.Get(frame.Id))
		s.mu.Unlock()
	case frame.SEND:
		b.Publish(f.Header.Get(frame.Destination), f.Body)
	case frame.DISCONNECT:
		if receipt := f.Header.Get(frame.Receipt); receipt != "" {
			_ = s.write(frame.New(frame.RECEIPT, frame.ReceiptId, receipt))
		}
		return false
	}
	return true
}

// Publish は destination を購読している全セッションにMESSAGEを送り、送信件数を返します
func (b *Broker) Publish(destination string, body []byte) int {
	b.mu.Lock()
	sessions := make([]*session, 0, len(b.sessions))
	for s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()

	delivered := 0
	for _, s := range sessions {
		for _, id := range s.subscriptionIDs(destination) {
			b.mu.Lock()
			b.messageSeq++
			msgID := strconv.Itoa(b.messageSeq)
			b.mu.Unlock()

			f := frame.New(frame.MESSAGE,
				frame.Destination, destination,
				frame.Subscription, id,
				frame.MessageId, msgID,
				frame.ContentType, "application/json",
				frame.ContentLength, strconv.Itoa(len(body)))
			f.Body = body
			if err := s.write(f); err == nil {
				delivered++
			}
		}
	}
	return delivered
}

// Subscriptions は destination の現在の購読数を返します
func (b *Broker) Subscriptions(destination string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for s := range b.sessions {
		n += len(s.subscriptionIDs(destination))
	}
	return n
}

// Commands はこれまでに受け取ったクライアントフレームのコマンドを受信順に返します
func (b *Broker) Commands() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.commands...)
}

// Transports は受け付けた接続の種類("sockjs" / "websocket")を接続順に返します
func (b *Broker) Transports() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.transports...)
}

// DropAll はDISCONNECTなしで全接続を切断します
func (b *Broker) DropAll() {
	b.mu.Lock()
	sessions := b.sessions
	b.sessions = make(map[*session]struct{})
	b.mu.Unlock()

	for s := range sessions {
		_ = s.ws.Close()
	}
}

func (b *Broker) remove(s *session) {
	b.mu.Lock()
	delete(b.sessions, s)
	b.mu.Unlock()
	_ = s.ws.Close()
}

type session struct {
	ws     *websocket.Conn
	sockjs bool

	mu      sync.Mutex
	writeMu sync.Mutex
	subs    map[string]string // id -> destination
}

func (s *session) subscriptionIDs(destination string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, dest := range s.subs {
		if dest == destination {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *session) decode(msg []byte) ([]*frame.Frame, error) {
	if !s.sockjs {
		return parse(msg)
	}

	var parts []string
	if err := json.Unmarshal(msg, &parts); err != nil {
		return nil, fmt.Errorf("sockjs client frame: %w", err)
	}
	var frames []*frame.Frame
	for _, p := range parts {
		fs, err := parse([]byte(p))
		if err != nil {
			return nil, err
		}
		frames = append(frames, fs...)
	}
	return frames, nil
}

func (s *session) write(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}
	if !s.sockjs {
		return s.writeRaw(buf.Bytes())
	}

	payload, err := json.Marshal([]string{buf.String()})
	if err != nil {
		return err
	}
	return s.writeRaw(append([]byte("a"), payload...))
}

func (s *session) writeRaw(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

func parse(data []byte) ([]*frame.Frame, error) {
	r := frame.NewReader(bytes.NewReader(data))

	var frames []*frame.Frame
	for {
		f, err := r.Read()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		if f != nil {
			frames = append(frames, f)
		}
	}
}
