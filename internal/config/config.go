package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Host string
		Port string
	}
	Log struct {
		Level string
	}
	Store struct {
		Driver string
	}
	Mongo struct {
		URI      string
		Database string
	}
	SQLite struct {
		Path string
	}
	Auth struct {
		JWTSecret  string
		TokenTTL   time.Duration
		BcryptCost int
	}
	Redis struct {
		URL string
	}
	Cache struct {
		TTL time.Duration
	}
	Archive struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// Load reads configuration from environment variables and optional config files.
// Keys map to ARTICLES_* variables (server.port -> ARTICLES_SERVER_PORT); a bare
// PORT variable is honoured as well.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("ARTICLES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "ARTICLES_SERVER_PORT", "PORT")

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("store.driver", StoreMongo)
	v.SetDefault("mongo.uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("mongo.database", "backend_assignment")
	v.SetDefault("sqlite.path", "data/articles.db")
	v.SetDefault("auth.jwtsecret", "secret")
	v.SetDefault("auth.tokenttl", "0s")
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("redis.url", "")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.keyprefix", "articles")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("aws.profile", "")
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case StoreMongo, StoreSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth jwt secret is required")
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth token ttl must not be negative")
	}
	return nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
