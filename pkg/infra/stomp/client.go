package stomp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/feed"
)

const connectTimeout = 10 * time.Second

// Subscription は購読1件分です。Handle が false を返したら購読ループを終了します
type Subscription struct {
	ID          string
	Destination string
	Handle      func(ctx context.Context, body []byte) bool
}

// Client はSTOMPブローカーへの常時接続を管理します。
// 切断されたら ReconnectDelay 待って無期限に再接続します
type Client struct {
	cfg     Config
	dialer  *websocket.Dialer
	http    *http.Client
	counter *feed.Counter
	logger  *zap.Logger
}

func NewClient(cfg Config, counter *feed.Counter, logger *zap.Logger) *Client {
	return &Client{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: connectTimeout},
		http:    &http.Client{Timeout: connectTimeout},
		counter: counter,
		logger:  logger,
	}
}

// Run は ctx が終了するまで接続と再接続を繰り返します。
// ctx が終了すると購読解除とDISCONNECTを送ってから戻り、以降 Handle は呼ばれません
func (c *Client) Run(ctx context.Context, subs []Subscription) {
	for {
		err := c.session(ctx, subs)
		c.counter.SetConnected(false)
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("stomp session ended, reconnecting",
			zap.Error(err),
			zap.Duration("delay", c.cfg.ReconnectDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// session は1回分の接続を処理します。戻り値は切断理由です
func (c *Client) session(ctx context.Context, subs []Subscription) error {
	t, ep, err := c.dial(ctx)
	if err != nil {
		return err
	}

	var subscribed atomic.Bool
	deactivated := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(deactivated)
		c.deactivate(t, subs, subscribed.Load())
	})
	defer func() {
		if stop() {
			_ = t.Close()
			return
		}
		<-deactivated
	}()

	if err := c.handshake(ep, t); err != nil {
		return err
	}

	for _, s := range subs {
		f := frame.New(frame.SUBSCRIBE,
			frame.Id, s.ID,
			frame.Destination, s.Destination,
			frame.Ack, "auto")
		if err := t.WriteFrame(f); err != nil {
			return fmt.Errorf("subscribe %s: %w", s.Destination, err)
		}
	}
	subscribed.Store(true)
	c.counter.SetConnected(true)
	c.logger.Info("stomp connected",
		zap.String("endpoint", ep.url),
		zap.Bool("sockjs", ep.sockjs))

	for {
		f, err := t.ReadFrame()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		switch f.Command {
		case frame.MESSAGE:
			s, ok := route(subs, f)
			if !ok {
				c.logger.Debug("message for unknown subscription",
					zap.String("subscription", f.Header.Get(frame.Subscription)),
					zap.String("destination", f.Header.Get(frame.Destination)))
				continue
			}
			if !s.Handle(ctx, f.Body) {
				return nil
			}
		case frame.ERROR:
			return fmt.Errorf("stomp error frame: %s %s", f.Header.Get(frame.Message), f.Body)
		}
	}
}

// dial は接続候補を順に試し、最初に繋がったものを返します
func (c *Client) dial(ctx context.Context) (*transport, endpoint, error) {
	eps, err := endpoints(ctx, c.http, c.cfg.URL, c.cfg.Transport)
	if err != nil {
		return nil, endpoint{}, err
	}

	var errs []error
	for _, ep := range eps {
		ws, _, err := c.dialer.DialContext(ctx, ep.url, nil)
		if err != nil {
			c.logger.Debug("websocket dial failed", zap.String("endpoint", ep.url), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", ep.url, err))
			continue
		}
		return newTransport(ws, ep.sockjs), ep, nil
	}
	return nil, endpoint{}, errors.Join(errs...)
}

func (c *Client) handshake(ep endpoint, t *transport) error {
	host := "localhost"
	if u, err := url.Parse(ep.url); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	connect := frame.New(frame.CONNECT,
		frame.AcceptVersion, "1.0,1.1,1.2",
		frame.Host, host,
		frame.HeartBeat, "0,0")
	if err := t.WriteFrame(connect); err != nil {
		return fmt.Errorf("stomp connect: %w", err)
	}

	_ = t.SetReadDeadline(time.Now().Add(connectTimeout))
	defer t.SetReadDeadline(time.Time{})

	for {
		f, err := t.ReadFrame()
		if err != nil {
			return fmt.Errorf("stomp connect: %w", err)
		}
		switch f.Command {
		case frame.CONNECTED:
			return nil
		case frame.ERROR:
			return fmt.Errorf("stomp connect rejected: %s %s", f.Header.Get(frame.Message), f.Body)
		}
	}
}

// deactivate は購読解除とDISCONNECTを送ってから接続を閉じます
func (c *Client) deactivate(t *transport, subs []Subscription, subscribed bool) {
	if subscribed {
		for _, s := range subs {
			if err := t.WriteFrame(frame.New(frame.UNSUBSCRIBE, frame.Id, s.ID)); err != nil {
				c.logger.Debug("unsubscribe failed", zap.String("id", s.ID), zap.Error(err))
			}
		}
	}
	if err := t.WriteFrame(frame.New(frame.DISCONNECT)); err != nil {
		c.logger.Debug("disconnect failed", zap.Error(err))
	}
	_ = t.Close()
	c.logger.Info("stomp deactivated")
}

// route はMESSAGEフレームを購読IDで、なければ宛先で振り分けます
func route(subs []Subscription, f *frame.Frame) (Subscription, bool) {
	id := f.Header.Get(frame.Subscription)
	dest := f.Header.Get(frame.Destination)
	for _, s := range subs {
		if id != "" && s.ID == id {
			return s, true
		}
	}
	for _, s := range subs {
		if s.Destination == dest {
			return s, true
		}
	}
	return Subscription{}, false
}
