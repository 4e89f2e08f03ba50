package stomp

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
)

// endpoint は接続を試みるwebsocketのURLです
type endpoint struct {
	url    string
	sockjs bool
}

type sockjsInfo struct {
	Websocket bool `json:"websocket"`
}

// endpoints は設定されたURLと接続方式から、試す順番に接続先を並べます。
// ws:// と wss:// はそのまま使い、http(s):// はSockJSの /info を確認してから
// SockJSのwebsocketトランスポート、素のwebsocketの順に並べます
func endpoints(ctx context.Context, client *http.Client, rawURL, mode string) ([]endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return []endpoint{{url: rawURL}}, nil
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported feed url scheme %q", u.Scheme)
	}
	base := strings.TrimSuffix(u.String(), "/")
	raw := endpoint{url: base + "/websocket"}

	switch mode {
	case TransportWebsocket:
		return []endpoint{raw}, nil
	case TransportSockJS:
		info, err := fetchInfo(ctx, client, rawURL)
		if err != nil {
			return nil, err
		}
		if !info.Websocket {
			return nil, fmt.Errorf("sockjs server at %s does not offer websocket transport", rawURL)
		}
		return []endpoint{sockjsEndpoint(base)}, nil
	case TransportAuto, "":
		var eps []endpoint
		if info, err := fetchInfo(ctx, client, rawURL); err == nil && info.Websocket {
			eps = append(eps, sockjsEndpoint(base))
		}
		return append(eps, raw), nil
	default:
		return nil, fmt.Errorf("unknown stomp transport %q", mode)
	}
}

func fetchInfo(ctx context.Context, client *http.Client, rawURL string) (*sockjsInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(rawURL, "/")+"/info", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sockjs info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sockjs info: status %d", resp.StatusCode)
	}

	var info sockjsInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("sockjs info: %w", err)
	}
	return &info, nil
}

// sockjsEndpoint は <base>/<server>/<session>/websocket を組み立てます
func sockjsEndpoint(base string) endpoint {
	server := fmt.Sprintf("%03d", rand.Intn(1000))
	return endpoint{
		url:    fmt.Sprintf("%s/%s/%s/websocket", base, server, sessionID()),
		sockjs: true,
	}
}

const sessionChars = "abcdefghijklmnopqrstuvwxyz0123456789"

func sessionID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = sessionChars[rand.Intn(len(sessionChars))]
	}
	return string(b)
}
