package config

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFile    string `mapstructure:"LOG_FILE"`

	InstagramDir string `mapstructure:"INSTAGRAM_DIR"`
	TweetDir     string `mapstructure:"TWEET_DIR"`
	TextDir      string `mapstructure:"TEXT_DIR"`

	ViewportWidth  int    `mapstructure:"VIEWPORT_WIDTH"`
	ViewportHeight int    `mapstructure:"VIEWPORT_HEIGHT"`
	ChromePath     string `mapstructure:"CHROME_PATH"`

	PostHeadless      bool   `mapstructure:"POST_HEADLESS"`
	PostSelector      string `mapstructure:"POST_SELECTOR"`
	PostWaitTimeoutMS int    `mapstructure:"POST_WAIT_TIMEOUT_MS"`
	PostSettleMS      int    `mapstructure:"POST_SETTLE_MS"`

	ProfileHeadless      bool   `mapstructure:"PROFILE_HEADLESS"`
	ProfileSelector      string `mapstructure:"PROFILE_SELECTOR"`
	ProfileItemSelector  string `mapstructure:"PROFILE_ITEM_SELECTOR"`
	ProfileWaitTimeoutMS int    `mapstructure:"PROFILE_WAIT_TIMEOUT_MS"`
	ProfileSettleMS      int    `mapstructure:"PROFILE_SETTLE_MS"`

	TesseractPath string `mapstructure:"TESSERACT_PATH"`

	CaptureTimeoutSeconds int `mapstructure:"CAPTURE_TIMEOUT_SECONDS"`
	MaxSessions           int `mapstructure:"MAX_SESSIONS"`

	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	LockTTLSeconds int    `mapstructure:"LOCK_TTL_SECONDS"`
}

// Load reads configuration from an env-format file and environment variables.
// An empty path means ".env". A missing file is not an error, which allows
// configuration purely through environment variables in production.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("INSTAGRAM_DIR", "static/images")
	v.SetDefault("TWEET_DIR", "static/tweet_screenshots")
	v.SetDefault("TEXT_DIR", "static/tweet_texts")

	v.SetDefault("VIEWPORT_WIDTH", 1920)
	v.SetDefault("VIEWPORT_HEIGHT", 1080)
	v.SetDefault("CHROME_PATH", "")

	v.SetDefault("POST_HEADLESS", false)
	v.SetDefault("POST_SELECTOR", "article")
	v.SetDefault("POST_WAIT_TIMEOUT_MS", 10000)
	v.SetDefault("POST_SETTLE_MS", 5000)

	v.SetDefault("PROFILE_HEADLESS", true)
	v.SetDefault("PROFILE_SELECTOR", "[data-testid='primaryColumn']")
	v.SetDefault("PROFILE_ITEM_SELECTOR", `[data-testid="tweet"]`)
	v.SetDefault("PROFILE_WAIT_TIMEOUT_MS", 30000)
	v.SetDefault("PROFILE_SETTLE_MS", 3000)

	v.SetDefault("TESSERACT_PATH", "tesseract")

	v.SetDefault("CAPTURE_TIMEOUT_SECONDS", 120)
	v.SetDefault("MAX_SESSIONS", 2)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LOCK_TTL_SECONDS", 180)
}

// Validate rejects values no pipeline can run with.
func (c *Config) Validate() error {
	switch {
	case c.ViewportWidth <= 0 || c.ViewportHeight <= 0:
		return eris.Errorf("config: invalid viewport %dx%d", c.ViewportWidth, c.ViewportHeight)
	case c.InstagramDir == "" || c.TweetDir == "" || c.TextDir == "":
		return eris.New("config: artifact directories must not be empty")
	case c.PostWaitTimeoutMS <= 0 || c.ProfileWaitTimeoutMS <= 0:
		return eris.New("config: selector wait timeouts must be positive")
	case c.PostSettleMS < 0 || c.ProfileSettleMS < 0:
		return eris.New("config: settle delays must not be negative")
	case c.CaptureTimeoutSeconds <= 0:
		return eris.New("config: CAPTURE_TIMEOUT_SECONDS must be positive")
	case c.MaxSessions <= 0:
		return eris.New("config: MAX_SESSIONS must be positive")
	case c.RedisAddr != "" && c.LockTTLSeconds <= 0:
		return eris.New("config: LOCK_TTL_SECONDS must be positive when REDIS_ADDR is set")
	}
	return nil
}

func (c *Config) PostWaitTimeout() time.Duration {
	return time.Duration(c.PostWaitTimeoutMS) * time.Millisecond
}

func (c *Config) PostSettle() time.Duration {
	return time.Duration(c.PostSettleMS) * time.Millisecond
}

func (c *Config) ProfileWaitTimeout() time.Duration {
	return time.Duration(c.ProfileWaitTimeoutMS) * time.Millisecond
}

func (c *Config) ProfileSettle() time.Duration {
	return time.Duration(c.ProfileSettleMS) * time.Millisecond
}

func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.CaptureTimeoutSeconds) * time.Second
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}
