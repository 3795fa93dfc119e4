package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"TELEGRAM_BOT_TOKEN", "SILICONFLOW_API_KEY", "SILICONFLOW_BASE_URL", "VISION_MODEL", "TEXT_MODEL",
	"IMAGE_MODEL", "IMAGE_SIZE", "LOG_LEVEL", "DEBUG", "PREFER_IPV4", "WEB_ADDR", "MEDIA_GROUP_DEBOUNCE_MS",
	"MAX_CONCURRENT", "REQUEST_TIMEOUT_SECONDS", "HTTP_TIMEOUT_SECONDS", "AI_CALL_TIMEOUT_SECONDS",
	"IMAGE_RATE_INTERVAL_MS", "IMAGE_RATE_BURST", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"JOB_TTL_MINUTES", "RENDER_FORMAT", "RENDER_FONT_PATH", "RENDER_FONT_BOLD_PATH",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.AIEnabled())
	assert.Equal(t, "https://api.siliconflow.cn/v1", cfg.SiliconFlowBaseURL)
	assert.Equal(t, "Pro/Qwen/Qwen2.5-VL-7B-Instruct", cfg.VisionModel)
	assert.Equal(t, "Pro/Qwen/Qwen2.5-7B-Instruct", cfg.TextModel)
	assert.Equal(t, "Kwai-Kolors/Kolors", cfg.ImageModel)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.PreferIPv4)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, 90*time.Second, cfg.AICallTimeout)
	assert.Equal(t, 300*time.Second, cfg.RequestTimeout)
	assert.GreaterOrEqual(t, cfg.RequestTimeout, MinRequestTimeout(cfg.AICallTimeout))
	assert.Equal(t, 24*time.Hour, cfg.JobTTL)
	assert.Equal(t, "png", cfg.RenderFormat)
	assert.Error(t, cfg.RequireTelegram())
}

func TestLoadOverridesAndClamps(t *testing.T) {
	clearEnv(t)
	t.Setenv("SILICONFLOW_API_KEY", " sk-test ")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("MAX_CONCURRENT", "0")
	t.Setenv("IMAGE_RATE_BURST", "-2")
	t.Setenv("AI_CALL_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("RENDER_FORMAT", "WebP")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.AIEnabled())
	assert.Equal(t, "sk-test", cfg.SiliconFlowAPIKey)
	assert.NoError(t, cfg.RequireTelegram())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.Equal(t, 1, cfg.ImageRateBurst)
	assert.Equal(t, 90*time.Second, cfg.AICallTimeout)
	assert.Equal(t, "webp", cfg.RenderFormat)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadRaisesRequestTimeoutToCoverAICalls(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_CALL_TIMEOUT_SECONDS", "120")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, cfg.AICallTimeout)
	assert.Equal(t, 390*time.Second, cfg.RequestTimeout)

	t.Setenv("REQUEST_TIMEOUT_SECONDS", "900")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 900*time.Second, cfg.RequestTimeout)
}

func TestLoadRejectsUnknownRenderFormat(t *testing.T) {
	clearEnv(t)
	t.Setenv("RENDER_FORMAT", "gif")

	_, err := Load()
	assert.EqualError(t, err, "RENDER_FORMAT must be png or webp")
}
