package publishers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samvad-hq/news-intelligence/internal/logger"
)

// Builder constructs a Publisher for one config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error)

// Registry maps publisher types to builders. It is populated at startup and read-only afterwards.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// DefaultRegistry knows every built-in sink type.
func DefaultRegistry() *Registry {
	return NewRegistry().
		Register(TypeHTTP, newHTTPPublisher).
		Register(TypeSQS, newSQSPublisher).
		Register(TypeSNS, newSNSPublisher).
		Register(TypeGCPPubSub, newPubSubPublisher).
		Register(TypeKafka, newKafkaPublisher)
}

// Register binds typ to b, replacing any previous builder.
func (r *Registry) Register(typ string, b Builder) *Registry {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ != "" && b != nil {
		r.builders[typ] = b
	}
	return r
}

// Types lists registered types in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.builders))
	for typ := range r.builders {
		out = append(out, typ)
	}
	slices.Sort(out)
	return out
}

// Build constructs the publisher for cfg.
func (r *Registry) Build(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	b, ok := r.builders[strings.ToLower(cfg.Type)]
	if !ok {
		return nil, fmt.Errorf("unknown publisher type %q (known: %s)", cfg.Type, strings.Join(r.Types(), ", "))
	}
	return b(ctx, cfg, logger.Ensure(log))
}

// BuildAll constructs a publisher per config. On failure, the ones already
// built are closed before returning.
func BuildAll(ctx context.Context, reg *Registry, cfgs []PublisherConfig, log logger.Logger) ([]Publisher, error) {
	if reg == nil {
		return nil, errors.New("publisher registry is nil")
	}

	built := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.Build(ctx, cfg, log)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("build publisher %q: %w", cfg.ID, err), closeAll(built))
		}
		built = append(built, pub)
	}
	return built, nil
}

func closeAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		c, ok := p.(closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s[%s]: %w", p.Type(), p.ID(), err))
		}
	}
	return errors.Join(errs...)
}
