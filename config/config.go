// Package config loads engine.Config from environment variables and an
// optional config file, using github.com/spf13/viper, per spec.md §6's
// "Persisted state" paragraph (env vars + optional config file, neither
// part of the core contract — the engine itself never reads either).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"serialbridge/engine"
)

const envPrefix = "SERIALBRIDGE"

// Keys recognized in the environment (SERIALBRIDGE_<KEY>) and in an
// optional serialbridge.yaml.
const (
	keyLogLevel       = "log_level"
	keyIdleThreshold  = "idle_threshold_ms"
	keyAsyncStoreCap  = "async_store_capacity"
	keySyncChannelCap = "sync_channel_capacity"
	keyRespBufferCap  = "response_buffer_capacity"
	keyReadChunkSize  = "read_chunk_size"
	keyBaudRate       = "baud_rate"
)

// Load reads serialbridge.yaml (searched in "." and
// "$HOME/.config/serialbridge") if present, overlays SERIALBRIDGE_* env
// vars, and returns an engine.Config plus the resolved default baud rate
// for new connections.
func Load() (engine.Config, int, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyIdleThreshold, int(engine.DefaultIdleThreshold/time.Millisecond))
	v.SetDefault(keyAsyncStoreCap, engine.DefaultAsyncStoreCapacity)
	v.SetDefault(keySyncChannelCap, engine.DefaultSyncChannelCapacity)
	v.SetDefault(keyRespBufferCap, engine.DefaultResponseBufferCapacity)
	v.SetDefault(keyReadChunkSize, engine.DefaultReadChunkSize)
	v.SetDefault(keyBaudRate, 115200)

	v.SetConfigName("serialbridge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config/serialbridge")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return engine.Config{}, 0, fmt.Errorf("read config file: %w", err)
		}
	}

	lvl, err := log.ParseLevel(v.GetString(keyLogLevel))
	if err != nil {
		lvl = log.InfoLevel
	}
	logger := log.New(os.Stderr)
	logger.SetLevel(lvl)

	cfg := engine.Config{
		ReadChunkSize:          v.GetInt(keyReadChunkSize),
		IdleThreshold:          time.Duration(v.GetInt(keyIdleThreshold)) * time.Millisecond,
		AsyncStoreCapacity:     v.GetInt(keyAsyncStoreCap),
		SyncChannelCapacity:    v.GetInt(keySyncChannelCap),
		ResponseBufferCapacity: v.GetInt(keyRespBufferCap),
		Logger:                 logger,
	}

	return cfg, v.GetInt(keyBaudRate), nil
}
