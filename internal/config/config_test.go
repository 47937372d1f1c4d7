package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("OWNER_ID", "42")
}

func TestParse_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.OwnerID)
	assert.Equal(t, "poll", cfg.BotMode)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 10*time.Minute, cfg.PendingTTL)
	assert.Equal(t, 3, cfg.SendAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.SendBackoff)
	assert.Equal(t, "https://api.telegram.org", cfg.TelegramAPI)
}

func TestParse_MissingRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("OWNER_ID", "42")

	_, err := Parse()
	require.Error(t, err)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		ok   bool
	}{
		{"webhook needs secret", map[string]string{"BOT_MODE": "webhook"}, false},
		{"webhook with secret", map[string]string{"BOT_MODE": "webhook", "WEBHOOK_SECRET": "s3"}, true},
		{"unknown mode", map[string]string{"BOT_MODE": "push"}, false},
		{"postgres needs url", map[string]string{"STORE_DRIVER": "postgres"}, false},
		{"postgres with url", map[string]string{"STORE_DRIVER": "postgres", "DATABASE_URL": "postgres://x"}, true},
		{"sqlite", map[string]string{"STORE_DRIVER": "sqlite"}, true},
		{"unknown driver", map[string]string{"STORE_DRIVER": "redis"}, false},
		{"zero attempts", map[string]string{"SEND_ATTEMPTS": "0"}, false},
		{"bad duration", map[string]string{"PENDING_TTL": "soon"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
