// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Config are the configuration parameters of the executor service.
type Config struct {
	// WorkerAcquireTimeout is how long Execute waits for a free worker
	// before escalating to a split. Zero means a single non-blocking scan.
	WorkerAcquireTimeout time.Duration

	// DefaultRetries is the retry budget of Execute when the caller does
	// not override it.
	DefaultRetries int

	// MaxInFlight bounds the number of Execute calls running at once.
	MaxInFlight int64
}

// DefaultConfig contains the default configuration of the executor service.
var DefaultConfig = Config{
	WorkerAcquireTimeout: 10 * time.Second,
	DefaultRetries:       3,
	MaxInFlight:          64,
}

// sanitize checks the provided user configuration and changes anything
// that's unreasonable or unworkable.
func (config *Config) sanitize() Config {
	conf := *config
	if conf.WorkerAcquireTimeout < 0 {
		log.Error("Sanitizing invalid executor acquire timeout", "provided", conf.WorkerAcquireTimeout, "updated", DefaultConfig.WorkerAcquireTimeout)
		conf.WorkerAcquireTimeout = DefaultConfig.WorkerAcquireTimeout
	}
	if conf.DefaultRetries < 0 {
		log.Error("Sanitizing invalid executor retry budget", "provided", conf.DefaultRetries, "updated", DefaultConfig.DefaultRetries)
		conf.DefaultRetries = DefaultConfig.DefaultRetries
	}
	if conf.MaxInFlight <= 0 {
		log.Error("Sanitizing invalid executor in-flight bound", "provided", conf.MaxInFlight, "updated", DefaultConfig.MaxInFlight)
		conf.MaxInFlight = DefaultConfig.MaxInFlight
	}
	return conf
}
