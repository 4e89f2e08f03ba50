package stomp

import (
	"fmt"
	"net/url"
	"time"
)

// 接続方式
const (
	TransportAuto      = "auto"
	TransportSockJS    = "sockjs"
	TransportWebsocket = "websocket"
)

// Config はSTOMPフィードに接続するための設定です
type Config struct {
	URL            string        `envconfig:"WEBSOCKET_URL" default:"http://localhost:8080/ws-alerts"`
	Transport      string        `envconfig:"STOMP_TRANSPORT" default:"auto"`
	AlertTopic     string        `envconfig:"STOMP_ALERT_TOPIC" default:"/topic/alerts"`
	PriceTopic     string        `envconfig:"STOMP_PRICE_TOPIC" default:"/topic/prices"`
	ReconnectDelay time.Duration `envconfig:"RECONNECT_DELAY" default:"5s"`
}

// Validate は再接続では直らない設定ミスを検出します
func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid feed url %q: %w", c.URL, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("unsupported feed url scheme %q", u.Scheme)
	}

	switch c.Transport {
	case TransportAuto, TransportSockJS, TransportWebsocket, "":
	default:
		return fmt.Errorf("unknown stomp transport %q", c.Transport)
	}

	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect delay must be positive: %s", c.ReconnectDelay)
	}
	return nil
}
