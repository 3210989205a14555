package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DefaultCSVURL, cfg.CSVURL)
	assert.Equal(t, 5*time.Minute, cfg.CatalogTTL)
	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 20, cfg.AuditBufferSize)
	assert.Equal(t, 5*time.Minute, cfg.AuditFlushInterval)
	assert.Equal(t, 10, cfg.ResultBatchSize)
	assert.Equal(t, 4000, cfg.MessageChunkSize)
	assert.Equal(t, []string{"App Components"}, cfg.MobileFiles)
	assert.Equal(t, []string{"Icons", "Logos", "Placeholders"}, cfg.IconFiles)
	assert.False(t, cfg.WebhookMode())

	assert.ErrorIs(t, cfg.Validate(), ErrMissingBotToken)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_WEBHOOK_URL", "https://bot.example.com/telegram/webhook")
	t.Setenv("CATALOG_TTL", "2m")
	t.Setenv("RATE_LIMIT_REQUESTS", "3")
	t.Setenv("TELEGRAM_SEND_RATE", "12.5")
	t.Setenv("CATALOG_ICON_FILES", " Icons , Brand ,, ")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.WebhookMode())
	assert.Equal(t, 2*time.Minute, cfg.CatalogTTL)
	assert.Equal(t, 3, cfg.RateLimitRequests)
	assert.Equal(t, 12.5, cfg.TelegramSendRate)
	assert.Equal(t, []string{"Icons", "Brand"}, cfg.IconFiles)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("AUDIT_BUFFER_SIZE", "lots")
	t.Setenv("AUDIT_FLUSH_INTERVAL", "soon")
	t.Setenv("AUDIT_WRITE_RATE", "fast")

	cfg := Load()

	assert.Equal(t, 20, cfg.AuditBufferSize)
	assert.Equal(t, 5*time.Minute, cfg.AuditFlushInterval)
	assert.Equal(t, 1.0, cfg.AuditWriteRate)
}

func TestValidateRejectsBadLimits(t *testing.T) {
	cfg := Load()
	cfg.BotToken = "t"
	cfg.RateLimitRequests = 0
	cfg.ResultBatchSize = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_REQUESTS")
	assert.Contains(t, err.Error(), "RESULT_BATCH_SIZE")
}
