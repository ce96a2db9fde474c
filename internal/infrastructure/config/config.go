package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config is shared by both binaries; each reads the sections it needs.
type Config struct {
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Console   ConsoleConfig
	Directory DirectoryConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type ConsoleConfig struct {
	Port            string        `env:"CONSOLE_PORT,            default=8080"`
	DirectoryURL    string        `env:"DIRECTORY_URL,           default=http://localhost:8081"`
	RequestTimeout  time.Duration `env:"DIRECTORY_TIMEOUT,       default=15s"`
	PageSize        int           `env:"CONSOLE_PAGE_SIZE,       default=10"`
	UploadExtension string        `env:"UPLOAD_EXTENSION,        default=.xlsx"`
	MaxUploadBytes  int64         `env:"UPLOAD_MAX_BYTES,        default=10485760"`
	EmailDomain     string        `env:"EMAIL_DOMAIN,            default=msb.com.vn"`
	SessionTTL      time.Duration `env:"CONSOLE_SESSION_TTL,     default=30m"`
	MaxSessions     int           `env:"CONSOLE_MAX_SESSIONS,    default=1024"`
	SecureCookies   bool          `env:"CONSOLE_SECURE_COOKIES,  default=false"`
}

type DirectoryConfig struct {
	Port        string `env:"DIRECTORY_PORT,         default=8081"`
	Actor       string `env:"DIRECTORY_ACTOR,        default=ADMIN"`
	ImportActor string `env:"DIRECTORY_IMPORT_ACTOR, default=SYSTEM_IMPORT"`
	Roles       string `env:"DIRECTORY_ROLES,        default=ADMIN|MAKER|CHECKER|VIEWER"`
}

// RoleNames splits the pipe separated seed list of the role catalog.
func (d DirectoryConfig) RoleNames() []string {
	var out []string
	for _, r := range strings.Split(d.Roles, "|") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=user_admin"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Production reports whether the process runs with ENV=production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads an optional .env file and then the environment using go-envconfig.
func Load() *Config {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
