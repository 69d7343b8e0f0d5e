package env

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	BackendNative = "native"
	BackendMemory = "memory"

	HiveStoreFile   = "file"
	HiveStoreMemory = "memory"
)

type Config struct {
	LogLevel    string `env:"REGBRIDGE_LOG_LEVEL,default=info"`
	LogEncoding string `env:"REGBRIDGE_LOG_ENCODING,default=json"`

	// Backend picks the registry the bridge serves. Empty means native on
	// Windows and memory elsewhere.
	Backend string `env:"REGBRIDGE_BACKEND"`

	// HiveStore is where the memory backend keeps SaveKey and LoadKey hives.
	HiveStore string `env:"REGBRIDGE_HIVE_STORE,default=file"`

	// MaxBuffer caps, in bytes, any single buffer a command may need.
	MaxBuffer int `env:"REGBRIDGE_MAX_BUFFER,default=268435456"`

	DialTimeout time.Duration `env:"REGBRIDGE_DIAL_TIMEOUT,default=10s"`

	// Reuseport sets SO_REUSEPORT on the listener query opens for its bridge.
	Reuseport bool `env:"REGBRIDGE_REUSEPORT"`

	Trace     bool `env:"REGBRIDGE_TRACE"`
	DebugHTTP bool `env:"REGBRIDGE_DEBUG_HTTP"`
}

// LoadConfig reads .env.local, when present, and then the environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading .env.local: %w", err)
		}
	}

	return Process(ctx, envconfig.OsLookuper())
}

// Process builds a Config from l.
func Process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := envconfig.ProcessWith(ctx, &config, l); err != nil {
		return nil, err
	}

	switch config.Backend {
	case "", BackendNative, BackendMemory:
	default:
		return nil, fmt.Errorf("REGBRIDGE_BACKEND: unknown backend %q", config.Backend)
	}

	switch config.HiveStore {
	case HiveStoreFile, HiveStoreMemory:
	default:
		return nil, fmt.Errorf("REGBRIDGE_HIVE_STORE: unknown store %q", config.HiveStore)
	}

	if config.MaxBuffer <= 0 {
		return nil, fmt.Errorf("REGBRIDGE_MAX_BUFFER: must be positive, got %d", config.MaxBuffer)
	}

	return &config, nil
}
