// This file implements the fan-out coordinator which dispatches a query to
// every configured provider concurrently and pools whatever arrives before
// the global deadline. Failure of one provider does not prevent results from
// others; the call only fails outright when every provider errored or the
// deadline passed with no successes.
package music

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"SongVault-Go/pkg/metrics"
)

// Sentinel errors surfaced by the coordinator. Callers match them with
// errors.Is to translate into user-facing failures.
var (
	// ErrAllProvidersFailed means no provider produced a usable response.
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrNoCandidates means at least one provider succeeded but none of them
	// had any matching content.
	ErrNoCandidates = errors.New("no candidates found")
)

// Default deadlines applied when the corresponding Coordinator field is zero.
const (
	DefaultProviderTimeout = 3 * time.Second
	DefaultTimeout         = 5 * time.Second
)

// Coordinator queries each configured Provider concurrently and merges the
// results. Each provider call is bounded by ProviderTimeout and the
// coordinator as a whole by Timeout, after which in-flight calls are
// abandoned and their eventual results discarded.
type Coordinator struct {
	Providers       []Provider
	ProviderTimeout time.Duration
	Timeout         time.Duration
	Log             *logrus.Logger
}

// SearchTrack fans the query out to all providers and returns the pooled
// candidates. The returned slice preserves no particular order; callers that
// need determinism sort it (the deduplicator does).
func (c Coordinator) SearchTrack(ctx context.Context, q Query) ([]RawCandidate, error) {
	if len(c.Providers) == 0 {
		return nil, ErrAllProvidersFailed
	}
	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	globalTimeout := c.Timeout
	if globalTimeout == 0 {
		globalTimeout = DefaultTimeout
	}
	providerTimeout := c.ProviderTimeout
	if providerTimeout == 0 {
		providerTimeout = DefaultProviderTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()

	type result struct {
		provider   string
		candidates []RawCandidate
		err        error
	}
	// Buffered so goroutines can always complete their send; results arriving
	// after the deadline are simply never read.
	resCh := make(chan result, len(c.Providers))
	for _, p := range c.Providers {
		go func(p Provider) {
			start := time.Now()
			pctx, pcancel := context.WithTimeout(ctx, providerTimeout)
			defer pcancel()
			cands, err := p.SearchTrack(pctx, q)
			if err != nil && errors.Is(pctx.Err(), context.DeadlineExceeded) {
				var pe *ProviderError
				if !errors.As(err, &pe) {
					err = &ProviderError{Provider: p.ID(), Kind: ErrKindTimeout, Err: err}
				}
			}
			metrics.ProviderSearchDuration.WithLabelValues(p.ID()).Observe(time.Since(start).Seconds())
			resCh <- result{provider: p.ID(), candidates: cands, err: err}
		}(p)
	}

	var pooled []RawCandidate
	var firstErr error
	successes := 0
collect:
	for received := 0; received < len(c.Providers); received++ {
		select {
		case r := <-resCh:
			if r.err != nil {
				kind := ErrKindUnreachable
				var pe *ProviderError
				if errors.As(r.err, &pe) {
					kind = pe.Kind
				}
				metrics.ProviderFailures.WithLabelValues(r.provider, string(kind)).Inc()
				log.WithFields(logrus.Fields{"provider": r.provider, "kind": kind}).
					WithError(r.err).Warn("provider search failed")
				if firstErr == nil {
					firstErr = r.err
				}
				continue
			}
			successes++
			pooled = append(pooled, r.candidates...)
		case <-ctx.Done():
			// Global deadline: stop waiting for stragglers.
			log.WithField("received", received).Debug("fan-out deadline reached")
			break collect
		}
	}

	if successes == 0 {
		if firstErr != nil {
			return nil, errors.Join(ErrAllProvidersFailed, firstErr)
		}
		return nil, ErrAllProvidersFailed
	}
	if len(pooled) == 0 {
		return nil, ErrNoCandidates
	}
	return pooled, nil
}
