package stomp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrames(t *testing.T) {
	data := "MESSAGE\ndestination:/topic/prices\nsubscription:sub-1\n\n{\"symbol\":\"BTC/USD\"}\x00\n" +
		"\n" +
		"MESSAGE\ndestination:/topic/alerts\nsubscription:sub-0\n\n{}\x00"

	frames, err := parseFrames([]byte(data))

	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, frame.MESSAGE, frames[0].Command)
	assert.Equal(t, "/topic/prices", frames[0].Header.Get(frame.Destination))
	assert.Equal(t, `{"symbol":"BTC/USD"}`, string(frames[0].Body))
	assert.Equal(t, "sub-0", frames[1].Header.Get(frame.Subscription))
}

func TestParseFrames_HeartbeatOnly(t *testing.T) {
	frames, err := parseFrames([]byte("\n"))

	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestTransportDecode_SockJS(t *testing.T) {
	tr := &transport{sockjs: true}

	testCases := []struct {
		name      string
		msg       string
		wantCount int
		wantErr   error
	}{
		{name: "open", msg: "o"},
		{name: "heartbeat", msg: "h"},
		{
			name:      "array with two frames",
			msg:       `a["MESSAGE\ndestination:/topic/a\n\nx\u0000","MESSAGE\ndestination:/topic/b\n\ny\u0000"]`,
			wantCount: 2,
		},
		{name: "close", msg: `c[3000,"Go away!"]`, wantErr: ErrClosedByServer},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := tr.decode([]byte(tt.msg))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, frames, tt.wantCount)
		})
	}
}

func TestEndpoints(t *testing.T) {
	info := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws-alerts/info" {
			w.Write([]byte(`{"websocket":true,"cookie_needed":false}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer info.Close()
	wsBase := "ws" + strings.TrimPrefix(info.URL, "http")

	t.Run("ws url is dialed as is", func(t *testing.T) {
		eps, err := endpoints(context.Background(), info.Client(), "ws://example.com/stomp", TransportAuto)

		require.NoError(t, err)
		assert.Equal(t, []endpoint{{url: "ws://example.com/stomp"}}, eps)
	})

	t.Run("auto prefers sockjs then raw", func(t *testing.T) {
		eps, err := endpoints(context.Background(), info.Client(), info.URL+"/ws-alerts", TransportAuto)

		require.NoError(t, err)
		require.Len(t, eps, 2)
		assert.True(t, eps[0].sockjs)
		assert.Regexp(t, `^`+wsBase+`/ws-alerts/\d{3}/[a-z0-9]{8}/websocket$`, eps[0].url)
		assert.Equal(t, endpoint{url: wsBase + "/ws-alerts/websocket"}, eps[1])
	})

	t.Run("auto without sockjs info falls back to raw", func(t *testing.T) {
		eps, err := endpoints(context.Background(), info.Client(), info.URL+"/other", TransportAuto)

		require.NoError(t, err)
		assert.Equal(t, []endpoint{{url: wsBase + "/other/websocket"}}, eps)
	})

	t.Run("websocket mode skips info", func(t *testing.T) {
		eps, err := endpoints(context.Background(), info.Client(), info.URL+"/ws-alerts/", TransportWebsocket)

		require.NoError(t, err)
		assert.Equal(t, []endpoint{{url: wsBase + "/ws-alerts/websocket"}}, eps)
	})

	t.Run("sockjs mode requires info", func(t *testing.T) {
		_, err := endpoints(context.Background(), info.Client(), info.URL+"/other", TransportSockJS)

		assert.Error(t, err)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := endpoints(context.Background(), info.Client(), "ftp://example.com", TransportAuto)

		assert.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := Config{URL: "http://localhost:8080/ws-alerts", Transport: TransportAuto, ReconnectDelay: 5e9}
	assert.NoError(t, valid.Validate())

	badScheme := valid
	badScheme.URL = "tcp://localhost"
	assert.Error(t, badScheme.Validate())

	badMode := valid
	badMode.Transport = "long-polling"
	assert.Error(t, badMode.Validate())

	noDelay := valid
	noDelay.ReconnectDelay = 0
	assert.Error(t, noDelay.Validate())
}
