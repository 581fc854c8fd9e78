package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
		Timeout     int
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr      string
		RateLimit string `mapstructure:"rate_limit"` // формат ulule: "60-M"
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
		// SessionTTL через сколько брошенный диалог начинается заново; 0 не ограничивает.
		SessionTTL time.Duration `mapstructure:"session_ttl"`
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Backend struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"backend"`

	Notifier struct {
		WebhookURL   string        `mapstructure:"webhook_url"`
		ScanInterval time.Duration `mapstructure:"scan_interval"`
		OrderBuffer  int64         `mapstructure:"order_buffer"`
	} `mapstructure:"notifier"`

	Labor struct {
		Debounce time.Duration `mapstructure:"debounce"`
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"labor"`

	Redis struct {
		Addr     string
		Password string
		DB       int
	} `mapstructure:"redis"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("telegram.timeout", 30)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", "120-M")
	v.SetDefault("postgres.session_ttl", 24*time.Hour)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("backend.base_url", "http://localhost:5001")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("notifier.scan_interval", 5*time.Minute)
	v.SetDefault("notifier.order_buffer", 5)
	v.SetDefault("labor.debounce", 100*time.Millisecond)
	v.SetDefault("labor.cache_ttl", 5*time.Minute)
}

func Load(path string) (Config, error) {
	// .env необязателен: в проде переменные приходят из окружения
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
