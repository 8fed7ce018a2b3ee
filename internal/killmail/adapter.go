package killmail

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
	"github.com/valkyrie-fleet/srp-backend/pkg/metrics"
)

// Adapter fetches a loss record from one external source format and
// normalizes it into the canonical Killmail. Match runs before any network
// access and reports why a reference is not recognized.
type Adapter interface {
	Name() string
	Match(rawURL string) error
	Fetch(ctx context.Context, rawURL string) (*Killmail, error)
}

// Registry routes a source reference to the first adapter that recognizes
// it.
type Registry struct {
	adapters []Adapter
	metrics  *metrics.KillmailMetrics
}

func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// WithMetrics attaches a fetch metrics recorder and returns the registry.
func (r *Registry) WithMetrics(m *metrics.KillmailMetrics) *Registry {
	r.metrics = m
	return r
}

// Fetch dispatches the reference to the matching adapter. When no adapter
// recognizes the URL, the per-adapter rejection reasons are aggregated into
// a single non-retryable error.
func (r *Registry) Fetch(ctx context.Context, rawURL string) (*Killmail, error) {
	if len(r.adapters) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidReference, "no killmail sources are configured")
	}

	var rejections error
	for _, adapter := range r.adapters {
		if err := adapter.Match(rawURL); err != nil {
			rejections = multierr.Append(rejections, fmt.Errorf("%s: %w", adapter.Name(), err))
			continue
		}

		start := time.Now()
		km, err := adapter.Fetch(ctx, rawURL)
		r.metrics.ObserveFetchDuration(adapter.Name(), time.Since(start))
		if err != nil {
			r.metrics.IncFetch(adapter.Name(), "error")
			return nil, err
		}
		r.metrics.IncFetch(adapter.Name(), "success")
		return km, nil
	}

	return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidReference, rejections, "no source recognizes the provided URL").
		WithDetails(map[string]any{"url": rawURL})
}
