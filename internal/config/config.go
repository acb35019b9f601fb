package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime setting of the server.
type Config struct {
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	Environment string `mapstructure:"environment"`
	ServiceName string `mapstructure:"service_name"`
	DebugRoutes bool   `mapstructure:"debug_routes"`

	DBDSN        string `mapstructure:"db_dsn"`
	AuthGRPCAddr string `mapstructure:"auth_grpc_addr"`
	// DevAuth trusts the bearer token as the user id. Never enable in production.
	DevAuth bool `mapstructure:"dev_auth"`
	// DevUsers seeds the in-memory user store when no database is configured.
	DevUsers []string `mapstructure:"dev_users"`

	AMQPURL        string `mapstructure:"amqp_url"`
	AMQPExchange   string `mapstructure:"amqp_exchange"`
	AuditRouteKey  string `mapstructure:"audit_routing_key"`
	PresenceRedis  string `mapstructure:"presence_redis_url"`
	PresenceKey    string `mapstructure:"presence_key"`
	OTLPEndpoint   string `mapstructure:"otel_exporter_otlp_endpoint"`
	MediaUploadURL string `mapstructure:"media_upload_url"`
	MediaPreset    string `mapstructure:"media_upload_preset"`

	WSSendBuffer   int           `mapstructure:"ws_send_buffer"`
	WSWriteTimeout time.Duration `mapstructure:"ws_write_timeout"`
	WSPongTimeout  time.Duration `mapstructure:"ws_pong_timeout"`
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8083)
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "local")
	v.SetDefault("service_name", "ping-me")
	v.SetDefault("debug_routes", false)
	v.SetDefault("db_dsn", "")
	v.SetDefault("auth_grpc_addr", "localhost:8084")
	v.SetDefault("dev_auth", false)
	v.SetDefault("dev_users", []string{})
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "ping_me.events")
	v.SetDefault("audit_routing_key", "audit.ping_me")
	v.SetDefault("presence_redis_url", "")
	v.SetDefault("presence_key", "ping_me:online_users")
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("media_upload_url", "")
	v.SetDefault("media_upload_preset", "")
	v.SetDefault("ws_send_buffer", 256)
	v.SetDefault("ws_write_timeout", 10*time.Second)
	v.SetDefault("ws_pong_timeout", 60*time.Second)
}

// Load reads configPath (optional, any format viper understands) and then
// applies environment overrides such as PORT or DB_DSN.
func Load(configPath string) (Config, error) {
	var cfg Config

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.WSSendBuffer <= 0 {
		return cfg, fmt.Errorf("ws_send_buffer must be positive, got %d", cfg.WSSendBuffer)
	}
	return cfg, nil
}

// MustLoad loads the configuration or panics.
func MustLoad(configPath string) Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return cfg
}
