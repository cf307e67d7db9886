// Package requirements provides the default queue resolution for job specs.
//
// The default resolver derives a queue name from the job name (CamelCase
// becomes snake_case) under an optional prefix, and declares the queue when
// the connection knows how to.
package requirements

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/queueworks/consumer/core"
	"github.com/queueworks/consumer/job"
)

// Options for the default resolver
type Options struct {
	// Prefix is prepended to every derived queue name, e.g. "myapp.".
	Prefix string

	// Config is the queue configuration handed to declaring connections.
	Config core.QueueConfig
}

// DefaultOptions returns default resolver options
func DefaultOptions() Options {
	return Options{
		Config: core.QueueConfig{Durable: true},
	}
}

// Resolver maps job specs to queue bindings.
type Resolver struct {
	conn    core.Connection
	options Options
}

// NewResolver creates a resolver bound to conn. conn may be nil, in which
// case no declaration is attempted.
func NewResolver(conn core.Connection, options Options) *Resolver {
	return &Resolver{conn: conn, options: options}
}

// Resolve derives the queue for spec and declares it when the connection
// supports declaration.
func (r *Resolver) Resolve(ctx context.Context, spec job.Spec) (core.Binding, error) {
	queue := r.options.Prefix + QueueName(spec.Name)

	if declarer, ok := r.conn.(core.QueueDeclarer); ok {
		if err := declarer.DeclareQueue(ctx, queue, r.options.Config); err != nil {
			return core.Binding{}, fmt.Errorf("declare queue %s: %w", queue, err)
		}
	}

	return core.Binding{Queue: queue, Config: r.options.Config}, nil
}

// QueueName converts a job name to its queue form: "EmailJob" becomes
// "email_job". Names already in queue form pass through unchanged.
func QueueName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}
