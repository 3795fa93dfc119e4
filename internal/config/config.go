package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string

	SiliconFlowAPIKey  string
	SiliconFlowBaseURL string
	VisionModel        string
	TextModel          string
	ImageModel         string
	ImageSize          string

	LogLevel string
	Debug    bool

	PreferIPv4 bool
	WebAddr    string

	MediaGroupDebounce time.Duration
	MaxConcurrent      int
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
	AICallTimeout      time.Duration

	ImageRateInterval time.Duration
	ImageRateBurst    int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JobTTL        time.Duration

	RenderFormat   string
	RenderFontPath string
	RenderBoldPath string
}

// Load reads the environment. A missing SILICONFLOW_API_KEY is not an error:
// copy falls back to templates and images to the local renderer.
func Load() (Config, error) {
	cfg := Config{
		SiliconFlowBaseURL: strings.TrimSpace(getEnv("SILICONFLOW_BASE_URL", "https://api.siliconflow.cn/v1")),
		VisionModel:        strings.TrimSpace(getEnv("VISION_MODEL", "Pro/Qwen/Qwen2.5-VL-7B-Instruct")),
		TextModel:          strings.TrimSpace(getEnv("TEXT_MODEL", "Pro/Qwen/Qwen2.5-7B-Instruct")),
		ImageModel:         strings.TrimSpace(getEnv("IMAGE_MODEL", "Kwai-Kolors/Kolors")),
		ImageSize:          strings.TrimSpace(getEnv("IMAGE_SIZE", "1024x1024")),
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		WebAddr:            strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 300)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		AICallTimeout:      time.Duration(getEnvInt("AI_CALL_TIMEOUT_SECONDS", 90)) * time.Second,
		ImageRateInterval:  time.Duration(getEnvInt("IMAGE_RATE_INTERVAL_MS", 500)) * time.Millisecond,
		ImageRateBurst:     getEnvInt("IMAGE_RATE_BURST", 3),
		RedisAddr:          strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		JobTTL:             time.Duration(getEnvInt("JOB_TTL_MINUTES", 1440)) * time.Minute,
		RenderFormat:       strings.ToLower(strings.TrimSpace(getEnv("RENDER_FORMAT", "png"))),
		RenderFontPath:     strings.TrimSpace(os.Getenv("RENDER_FONT_PATH")),
		RenderBoldPath:     strings.TrimSpace(os.Getenv("RENDER_FONT_BOLD_PATH")),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.SiliconFlowAPIKey = strings.TrimSpace(os.Getenv("SILICONFLOW_API_KEY"))

	switch cfg.RenderFormat {
	case "png", "webp":
	default:
		return Config{}, errors.New("RENDER_FORMAT must be png or webp")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.AICallTimeout <= 0 {
		cfg.AICallTimeout = 90 * time.Second
	}
	// A pass spends up to two AI calls on copy (vision, then text) and one more
	// on the parallel image fan-out, so the request budget must cover three.
	if floor := MinRequestTimeout(cfg.AICallTimeout); cfg.RequestTimeout < floor {
		cfg.RequestTimeout = floor
	}
	if cfg.ImageRateInterval < 0 {
		cfg.ImageRateInterval = 0
	}
	if cfg.ImageRateBurst < 1 {
		cfg.ImageRateBurst = 1
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 24 * time.Hour
	}

	return cfg, nil
}

// MinRequestTimeout is the smallest pass budget that still leaves the image
// fan-out a full call after the copy step used both of its attempts.
func MinRequestTimeout(aiCall time.Duration) time.Duration {
	return 3*aiCall + 30*time.Second
}

func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func (c Config) AIEnabled() bool {
	return c.SiliconFlowAPIKey != ""
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
