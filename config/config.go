// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyRPCURL               = "rpc-url"
	KeyRedisURL             = "redis-url"
	KeyLogLevel             = "log-level"
	KeyLogFile              = "log-file"
	KeyWorkerAcquireTimeout = "worker-acquire-timeout"
	KeyDefaultRetries       = "default-retries"
	KeyMaxInFlight          = "max-inflight"
)

// Defaults.
const (
	DefaultLogLevel             = "info"
	DefaultWorkerAcquireTimeout = 10 * time.Second
	DefaultRetries              = 3
	DefaultMaxInFlight          = 64
)

// Config is the file/env configuration of the pool executor.
type Config struct {
	RPCURL               string
	RedisURL             string
	LogLevel             string
	LogFile              string
	WorkerAcquireTimeout time.Duration
	DefaultRetries       int
	MaxInFlight          int64
}

// Default returns the configuration with every key at its default.
func Default() Config {
	return Config{
		LogLevel:             DefaultLogLevel,
		WorkerAcquireTimeout: DefaultWorkerAcquireTimeout,
		DefaultRetries:       DefaultRetries,
		MaxInFlight:          DefaultMaxInFlight,
	}
}

// Load reads the configuration from the given file, with environment
// variables (prefix OBJECTPOOL_) taking precedence. An empty path loads
// defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("objectpool")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyWorkerAcquireTimeout, DefaultWorkerAcquireTimeout)
	v.SetDefault(KeyDefaultRetries, DefaultRetries)
	v.SetDefault(KeyMaxInFlight, DefaultMaxInFlight)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	timeout, err := cast.ToDurationE(v.Get(KeyWorkerAcquireTimeout))
	if err != nil {
		return Config{}, err
	}
	retries, err := cast.ToIntE(v.Get(KeyDefaultRetries))
	if err != nil {
		return Config{}, err
	}
	maxInFlight, err := cast.ToInt64E(v.Get(KeyMaxInFlight))
	if err != nil {
		return Config{}, err
	}
	return Config{
		RPCURL:               v.GetString(KeyRPCURL),
		RedisURL:             v.GetString(KeyRedisURL),
		LogLevel:             v.GetString(KeyLogLevel),
		LogFile:              v.GetString(KeyLogFile),
		WorkerAcquireTimeout: timeout,
		DefaultRetries:       retries,
		MaxInFlight:          maxInFlight,
	}, nil
}
