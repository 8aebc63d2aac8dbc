package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogFile    string        `mapstructure:"log_file"`
	MetricFile string        `mapstructure:"metric_file"`

	// Client side.
	RelayURL    string   `mapstructure:"relay_url"`
	StunServers []string `mapstructure:"stun_servers"`
	LinkBase    string   `mapstructure:"link_base"`

	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	GeminiLiveModel   string `mapstructure:"gemini_live_model"`
	GeminiReportModel string `mapstructure:"gemini_report_model"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("relay_url", "RELAY_URL")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Relay: %s\n", cfg.Mode, cfg.Port, cfg.RelayURL)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("log_file", "")
	v.SetDefault("metric_file", "")
	v.SetDefault("relay_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("stun_servers", []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
	})
	v.SetDefault("link_base", "https://volley.example/session")
	v.SetDefault("gemini_live_model", "gemini-2.5-flash-native-audio-preview-09-2025")
	v.SetDefault("gemini_report_model", "gemini-2.5-flash")
}
