package locator

import (
	"context"
	"time"
)

// Resolver is the self-healing locator resolution engine. It holds no
// mutable state; one resolver can serve any number of sequential Resolve
// calls for the page it was built over.
type Resolver struct {
	queries Querier
	logger  Logger
}

// New creates a resolver over the given element query capability. A nil
// logger disables log output without affecting resolution.
func New(queries Querier, logger Logger) *Resolver {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Resolver{
		queries: queries,
		logger:  logger,
	}
}

// Resolve waits for the primary query to become visible and returns it. When
// the primary wait fails and healing is enabled, the fixed strategy chain is
// tried in order; the first strategy whose query becomes visible within the
// fallback timeout wins. Each strategy is tried exactly once.
//
// Errors: *NotFoundError when healing is disabled, *HealFailedError when all
// strategies are exhausted, or ctx.Err() when the caller's context ends
// mid-resolution.
func (r *Resolver) Resolve(ctx context.Context, primary Query, ectx ElementContext, cfg *Config) (*Resolution, error) {
	conf := cfg.withDefaults()
	start := time.Now()

	primaryErr := primary.WaitVisible(ctx, conf.Timeout)
	if primaryErr == nil {
		return &Resolution{
			Element:  primary,
			Strategy: "primary",
			Elapsed:  time.Since(start),
		}, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if !conf.Enabled {
		return nil, &NotFoundError{Selector: ectx.OriginalSelector, Err: primaryErr}
	}

	if conf.LogWarnings {
		r.logger.Warn("Primary locator %q did not become visible within %s, attempting to heal", ectx.OriginalSelector, conf.Timeout)
	}

	tried := make([]string, 0, len(healingStrategies))
	for _, strategy := range healingStrategies {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tried = append(tried, strategy.Name)

		query := strategy.Derive(r.queries, ectx).First()
		if err := query.WaitVisible(ctx, conf.FallbackTimeout); err != nil {
			r.logger.Debug("Healing strategy %q found no match for %q: %v", strategy.Name, ectx.OriginalSelector, err)
			continue
		}

		if conf.LogWarnings {
			r.logger.Warn("Healed locator %q via strategy %q - update the stale selector in the scenario", ectx.OriginalSelector, strategy.Name)
		}
		return &Resolution{
			Element:  query,
			Strategy: strategy.Name,
			Healed:   true,
			Elapsed:  time.Since(start),
		}, nil
	}

	r.logger.Error("Healing exhausted all %d strategies for %q", len(tried), ectx.OriginalSelector)
	return nil, &HealFailedError{Selector: ectx.OriginalSelector, Strategies: tried}
}
