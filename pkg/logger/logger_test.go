package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       Config
		expectErr bool
		debug     bool
	}{
		{name: "json info", cfg: Config{Level: "info", Format: "json"}},
		{name: "console debug", cfg: Config{Level: "debug", Format: "console"}, debug: true},
		{name: "bad level", cfg: Config{Level: "loud", Format: "json"}, expectErr: true},
		{name: "bad format", cfg: Config{Level: "info", Format: "xml"}, expectErr: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)

			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.debug, l.Core().Enabled(zap.DebugLevel))
		})
	}
}
