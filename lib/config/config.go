package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/HORNET-Storage/hornet-groups/lib/types"
)

const EnvPrefix = "HORNET_GROUPS"

var (
	// Cache the configuration after first load
	cachedConfig atomic.Value // stores *types.Config

	// Only protect write operations
	writeMutex sync.Mutex

	// Debounce timer for config file changes
	debounceTimer *time.Timer
	debounceMutex sync.Mutex

	onReload []func(*types.Config)
)

// InitConfig loads configuration from file, environment and defaults, in
// increasing order of precedence: defaults, file, environment, then any
// flags bound by the caller. An explicit configFile must exist; otherwise a
// missing config.yaml is not an error.
func InitConfig(configFile string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	fileLoaded := true
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		fileLoaded = false
	}

	if err := reloadConfigCache(); err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}

	if fileLoaded {
		watch()
	}

	return nil
}

// SetDefaults registers the default of every known key.
func SetDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.path", "logs")

	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("store.path", "data/events")
	viper.SetDefault("store.state_path", "data/groups.db")

	viper.SetDefault("groups.relay", "")
	viper.SetDefault("groups.verify_signatures", true)

	viper.SetDefault("builder.dedup", "none")

	viper.SetDefault("identity.private_key", "")
}

func watch() {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		// Debounce file changes to avoid reading partial writes
		debounceMutex.Lock()
		defer debounceMutex.Unlock()

		if debounceTimer != nil {
			debounceTimer.Stop()
		}

		debounceTimer = time.AfterFunc(500*time.Millisecond, func() {
			log.Printf("Config file changed (debounced): %s", e.Name)
			writeMutex.Lock()
			defer writeMutex.Unlock()

			if err := reloadConfigCache(); err != nil {
				log.Printf("Error reloading config cache after file change: %v", err)
			}
		})
	})
}

// reloadConfigCache loads the configuration from viper into the cache
func reloadConfigCache() error {
	config := &types.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cachedConfig.Store(config)

	for _, fn := range onReload {
		fn(config)
	}
	return nil
}

// OnReload registers fn to run after every successful reload. Register
// before InitConfig.
func OnReload(fn func(*types.Config)) {
	writeMutex.Lock()
	defer writeMutex.Unlock()
	onReload = append(onReload, fn)
}

// GetConfig returns the cached configuration struct
func GetConfig() (*types.Config, error) {
	if cfg := cachedConfig.Load(); cfg != nil {
		return cfg.(*types.Config), nil
	}

	writeMutex.Lock()
	defer writeMutex.Unlock()

	if cfg := cachedConfig.Load(); cfg != nil {
		return cfg.(*types.Config), nil
	}
	SetDefaults()
	if err := reloadConfigCache(); err != nil {
		return nil, err
	}
	return cachedConfig.Load().(*types.Config), nil
}

// UpdateConfig sets a value and refreshes the cache, skipping no-op writes.
func UpdateConfig(key string, value interface{}) error {
	writeMutex.Lock()
	defer writeMutex.Unlock()

	if fmt.Sprint(viper.Get(key)) == fmt.Sprint(value) {
		return nil
	}

	viper.Set(key, value)
	return reloadConfigCache()
}
