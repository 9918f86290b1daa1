package config

import (
	"time"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

type Config struct {
	Telegram TelegramConfig
	Rcon     RconConfig
	Storage  StorageConfig
	Profile  ProfileConfig
	Monitor  MonitorConfig
	Log      LogConfig
	Tracing  TracingConfig

	// Servers is read from Storage.ServersFile, in file order.
	Servers []domain.TargetConfig
}

type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN" required:"true"`
	// AllowedUsers restricts the bot to a comma-separated list of user ids.
	// Left empty, every Telegram user may use the bot.
	AllowedUsers string `env:"TELEGRAM_ALLOWED_USERS" envDefault:""`
}

// RconConfig holds the defaults every server inherits unless it overrides them.
type RconConfig struct {
	ConnectTimeout time.Duration `env:"RCON_CONNECT_TIMEOUT" envDefault:"10s"`
	CommandTimeout time.Duration `env:"RCON_COMMAND_TIMEOUT" envDefault:"5s"`
	// Concurrency > 1 whitelists on several servers at once for "all".
	Concurrency  int  `env:"RCON_CONCURRENCY" envDefault:"1"`
	KickOnRemove bool `env:"RCON_KICK_ON_REMOVE" envDefault:"true"`
}

type StorageConfig struct {
	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	ServersFile string `env:"SERVERS_FILE" envDefault:"data/servers.yaml"`
}

type ProfileConfig struct {
	BaseURL   string        `env:"MCPROFILE_URL" envDefault:"https://mcprofile.io"`
	RateLimit float64       `env:"MCPROFILE_RATE_LIMIT" envDefault:"2"`
	RedisAddr string        `env:"REDIS_ADDR" envDefault:""`
	CacheTTL  time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"24h"`
}

type MonitorConfig struct {
	Addr          string `env:"MONITOR_ADDR" envDefault:":8080"`
	ProbeSchedule string `env:"PROBE_SCHEDULE" envDefault:"@every 1m"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type TracingConfig struct {
	// Exporter is none, stdout or otlp.
	Exporter   string  `env:"OTEL_EXPORTER" envDefault:"none"`
	Endpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	SampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1"`
}
