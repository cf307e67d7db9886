package redis

import (
	"time"

	internal "github.com/queueworks/consumer/internal/redis"
)

// Options for the Redis connection
type Options struct {
	// URI is the Redis connection URI
	URI string

	// Namespace is the key prefix in Redis
	Namespace string

	// PollInterval is how long to wait after finding a queue empty
	PollInterval time.Duration

	// Pool settings
	MaxConnections int
	MaxIdle        int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// TLS options
	UseTLS        bool
	TLSSkipVerify bool
	TLSCertPath   string
}

// DefaultOptions returns default Redis options
func DefaultOptions() Options {
	return Options{
		URI:            "redis://localhost:6379/",
		Namespace:      "consumer:",
		PollInterval:   5 * time.Second,
		MaxConnections: 10,
		MaxIdle:        2,
		IdleTimeout:    240 * time.Second,
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

func (o Options) pool() internal.Options {
	return internal.Options{
		URI:            o.URI,
		MaxConnections: o.MaxConnections,
		MaxIdle:        o.MaxIdle,
		IdleTimeout:    o.IdleTimeout,
		ConnectTimeout: o.ConnectTimeout,
		ReadTimeout:    o.ReadTimeout,
		WriteTimeout:   o.WriteTimeout,
		UseTLS:         o.UseTLS,
		TLSSkipVerify:  o.TLSSkipVerify,
		TLSCertPath:    o.TLSCertPath,
	}
}
