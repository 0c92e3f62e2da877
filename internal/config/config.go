package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Security  SecurityConfig
	Websocket WebsocketConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	CRUD      CRUDConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	// InternalBodyLimit caps request bodies under /internal, in echo's size
	// notation ("256K", "1M").
	InternalBodyLimit string
}

type LoggingConfig struct {
	Directory string
	Level     string
	Format    string
}

type SecurityConfig struct {
	JWTSecret    string
	JWTPublicKey string
	JWTIssuer    string
	JWTAudience  string
	JWTLeeway    time.Duration
	// InternalAPIKey guards /internal/*; empty leaves it open.
	InternalAPIKey string
}

type WebsocketConfig struct {
	Path            string
	SendBuffer      int
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageBytes int64
	AllowedOrigins  []string
	// KeepAliveInterval paces hub protocol pings; browser clients drop a
	// connection that stays silent for 30s.
	KeepAliveInterval time.Duration
	HandshakeTimeout  time.Duration
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 && len(k.Topics) > 0 }

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// CRUDConfig points at the CRUD API, used to look up item owners for match events
// that arrive without recipients.
type CRUDConfig struct {
	BaseURL       string
	ServiceToken  string
	Timeout       time.Duration
	OwnerCacheTTL time.Duration
}

func (c CRUDConfig) Enabled() bool { return c.BaseURL != "" }

// Load reads the process environment. Unset variables take their defaults; values
// that do not parse are reported together.
func Load() (*Config, error) {
	p := &envParser{}
	cfg := &Config{
		Server: ServerConfig{
			Port:              p.str("PORT", "8080"),
			ShutdownTimeout:   p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
			InternalBodyLimit: p.str("INTERNAL_BODY_LIMIT", "256K"),
		},
		Logging: LoggingConfig{
			Directory: p.str("LOG_DIRECTORY", "./logs"),
			Level:     p.str("LOG_LEVEL", "info"),
			Format:    p.str("LOG_FORMAT", "text"),
		},
		Security: SecurityConfig{
			JWTSecret:      p.str("JWT_SECRET", ""),
			JWTPublicKey:   strings.ReplaceAll(p.str("JWT_PUBLIC_KEY", ""), `\n`, "\n"),
			JWTIssuer:      p.optional("JWT_ISSUER", "LostAndFoundApp"),
			JWTAudience:    p.optional("JWT_AUDIENCE", "LostAndFoundAppAudience"),
			JWTLeeway:      p.duration("JWT_LEEWAY", 2*time.Minute),
			InternalAPIKey: p.str("INTERNAL_API_KEY", ""),
		},
		Websocket: WebsocketConfig{
			Path:              p.str("WS_PATH", "/hubs/messages"),
			SendBuffer:        p.integer("WS_SEND_BUFFER", 16),
			PingInterval:      p.duration("WS_PING_INTERVAL", 30*time.Second),
			PongWait:          p.duration("WS_PONG_WAIT", 60*time.Second),
			WriteWait:         p.duration("WS_WRITE_WAIT", 5*time.Second),
			MaxMessageBytes:   int64(p.integer("WS_MAX_MESSAGE_BYTES", 1<<16)),
			AllowedOrigins:    p.list("WS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
			KeepAliveInterval: p.duration("WS_KEEPALIVE_INTERVAL", 15*time.Second),
			HandshakeTimeout:  p.duration("WS_HANDSHAKE_TIMEOUT", 15*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: p.list("KAFKA_BROKERS", os.Getenv("KAFKA_BROKER")),
			GroupID: p.str("KAFKA_GROUP_ID", "lostfound-realtime"),
			Topics:  p.list("KAFKA_TOPICS", "lostfound.realtime"),
		},
		Redis: RedisConfig{
			Addr:     p.str("REDIS_ADDR", ""),
			Password: p.str("REDIS_PASSWORD", ""),
			DB:       p.integer("REDIS_DB", 0),
			Channel:  p.str("REDIS_CHANNEL", "lostfound:realtime"),
		},
		CRUD: CRUDConfig{
			BaseURL:       p.str("CRUD_API_URL", ""),
			ServiceToken:  p.str("CRUD_API_TOKEN", ""),
			Timeout:       p.duration("CRUD_API_TIMEOUT", 5*time.Second),
			OwnerCacheTTL: p.duration("OWNER_CACHE_TTL", 5*time.Minute),
		},
	}

	if cfg.Security.JWTSecret == "" && cfg.Security.JWTPublicKey == "" {
		p.fail("JWT_SECRET or JWT_PUBLIC_KEY must be set")
	}
	if !strings.HasPrefix(cfg.Websocket.Path, "/") {
		p.fail("WS_PATH must start with /")
	}
	if cfg.Websocket.PingInterval >= cfg.Websocket.PongWait {
		p.fail("WS_PING_INTERVAL must be shorter than WS_PONG_WAIT")
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type envParser struct {
	errs []error
}

func (p *envParser) fail(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf(format, args...))
}

func (p *envParser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w", errors.Join(p.errs...))
}

func (p *envParser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// optional differs from str in that an explicitly empty value wins over the default.
func (p *envParser) optional(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *envParser) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		p.fail("%s: invalid non-negative integer %q", key, raw)
		return def
	}
	return v
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		p.fail("%s: invalid duration %q", key, raw)
		return def
	}
	return v
}

func (p *envParser) list(key, def string) []string {
	raw := p.str(key, def)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
