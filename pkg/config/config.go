package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	SMTP     SMTPConfig
	SMS      SMSConfig
	Sweep    SweepConfig
	Ticket   TicketConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	HTTPPort    int           `mapstructure:"http_port"`
	MetricsPort int           `mapstructure:"metrics_port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	UploadDir   string        `mapstructure:"upload_dir"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	// AltUsers are fallback credentials tried when the primary user's
	// connection slots are exhausted.
	AltUsers    []string      `mapstructure:"alt_users"`
	MaxRetries  int           `mapstructure:"max_retries"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

type RedisConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Password    string   `mapstructure:"password"`
	DB          int      `mapstructure:"db"`
	PoolSize    int      `mapstructure:"pool_size"`
	ClusterMode bool     `mapstructure:"cluster_mode"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type SMSConfig struct {
	APIURL    string `mapstructure:"api_url"`
	APIToken  string `mapstructure:"api_token"`
	APISecret string `mapstructure:"api_secret"`
}

type SweepConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	Horizon       time.Duration `mapstructure:"horizon"`
}

type TicketConfig struct {
	Prefix string `mapstructure:"prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/grievance/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("GRIEVANCE")
	viper.AutomaticEnv()

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.metrics_port", 9091)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.upload_dir", "uploads")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.alt_users", []string{"complaints", "io", "personal"})
	viper.SetDefault("database.max_retries", 10)
	viper.SetDefault("database.base_backoff", "1s")
	viper.SetDefault("database.max_backoff", "30s")
	viper.SetDefault("redis.pool_size", 100)
	viper.SetDefault("auth.token_ttl", "2h")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("sweep.interval", "1h")
	viper.SetDefault("sweep.retry_interval", "5m")
	viper.SetDefault("sweep.horizon", "24h")
	viper.SetDefault("ticket.prefix", "FOS")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return c.DSNForUser(c.User)
}

func (c *DatabaseConfig) DSNForUser(user string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, user, c.Password, c.Database, c.SSLMode,
	)
}
