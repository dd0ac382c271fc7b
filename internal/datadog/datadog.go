package datadog

import (
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

var (
	mu        sync.RWMutex
	dogstatsd *statsd.Client
)

// InitMetrics connects the package-level DogStatsD client. Until it is called (or when it
// fails) every emitter below is a no-op.
func InitMetrics(addr, namespace string, tags []string) {
	client, err := statsd.New(addr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}

	client.Namespace = namespace
	client.Tags = tags

	mu.Lock()
	dogstatsd = client
	mu.Unlock()

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("Datadog metrics initialized")
}

// Close flushes and drops the client.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if dogstatsd != nil {
		if err := dogstatsd.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close DogStatsD client")
		}
		dogstatsd = nil
	}
}

func client() *statsd.Client {
	mu.RLock()
	defer mu.RUnlock()
	return dogstatsd
}

func Gauge(name string, value float64, tags ...string) {
	if c := client(); c != nil {
		if err := c.Gauge(name, value, tags, 1); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
		}
	}
}

func Incr(name string, tags ...string) {
	if c := client(); c != nil {
		if err := c.Incr(name, tags, 1); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
		}
	}
}

func Timing(name string, d time.Duration, tags ...string) {
	if c := client(); c != nil {
		if err := c.Timing(name, d, tags, 1); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit timing metric")
		}
	}
}
