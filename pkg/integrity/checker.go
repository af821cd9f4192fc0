// Package integrity periodically revalidates stored canonical links. The
// checker probes each chosen URL with a lightweight reachability request and
// records an alive or dead verdict. It never deletes a row or touches the
// frozen metadata: a dead status is informational, preserving the promise
// that stored metadata outlives the external source.
package integrity

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"SongVault-Go/pkg/db"
	"SongVault-Go/pkg/metrics"
)

// Clock abstracts time so tests can drive the backoff schedule without real
// waiting.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Defaults applied when the corresponding Checker field is zero.
const (
	DefaultInterval    = 6 * time.Hour
	DefaultConcurrency = 4
	// Base delay of the per-link retry backoff after a failed probe. The
	// delay doubles per consecutive failure up to the cap.
	retryBase = 15 * time.Minute
	retryCap  = 24 * time.Hour
)

// Checker revalidates canonical links on a fixed schedule with a bounded
// number of concurrent probes. A probe failure (network error, ambiguous
// status) leaves the stored status unchanged and backs the link off
// exponentially so a consistently unreachable host is not hammered.
type Checker struct {
	DB          *db.DB
	HTTP        *http.Client
	Interval    time.Duration
	Concurrency int
	Log         *logrus.Logger
	Clock       Clock

	mu    sync.Mutex
	retry map[string]retryState
}

type retryState struct {
	failures    int
	nextAttempt time.Time
}

// Run sweeps immediately and then on every interval tick until the context
// is cancelled. Intended to run on its own goroutine.
func (c *Checker) Run(ctx context.Context) {
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := c.Sweep(ctx); err != nil {
			c.logger().WithError(err).Error("integrity sweep failed")
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Sweep probes every stored link that is not in a backoff window. Probes run
// concurrently, bounded by Concurrency, and each verdict is written back as
// a single-row update of the two mutable columns.
func (c *Checker) Sweep(ctx context.Context) error {
	links, err := c.DB.ListCanonicalLinks(ctx)
	if err != nil {
		return fmt.Errorf("list links: %w", err)
	}
	log := c.logger()
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, link := range links {
		link := link
		if !c.due(link.SongID) {
			continue
		}
		g.Go(func() error {
			status, err := c.probe(ctx, link.ChosenURL)
			now := c.clock().Now()
			if err != nil {
				// Leave the prior status untouched; retry next cycle with
				// backoff.
				delay := c.recordFailure(link.SongID, now)
				metrics.LinkProbesTotal.WithLabelValues("failed").Inc()
				log.WithFields(logrus.Fields{
					"song_id":  link.SongID,
					"url":      link.ChosenURL,
					"retry_in": delay,
				}).WithError(err).Warn("validation probe failed")
				return nil
			}
			c.clearFailure(link.SongID)
			metrics.LinkProbesTotal.WithLabelValues(string(status)).Inc()
			if err := c.DB.UpdateValidation(ctx, link.SongID, status, now); err != nil {
				log.WithField("song_id", link.SongID).WithError(err).Error("validation update failed")
			}
			return nil
		})
	}
	return g.Wait()
}

// probe issues a HEAD request against the stored URL. A 2xx/3xx answer means
// alive, a definitive 404/410 means the content is gone, and anything else
// is ambiguous and reported as a probe error.
func (c *Checker) probe(ctx context.Context, url string) (db.ValidationStatus, error) {
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	switch {
	case resp.StatusCode < 400:
		return db.ValidationAlive, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return db.ValidationDead, nil
	default:
		return "", fmt.Errorf("ambiguous probe status %s", resp.Status)
	}
}

// due reports whether the link is outside its backoff window.
func (c *Checker) due(songID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.retry[songID]
	if !ok {
		return true
	}
	return !c.clock().Now().Before(st.nextAttempt)
}

// recordFailure bumps the link's failure count and returns the delay until
// the next attempt.
func (c *Checker) recordFailure(songID string, now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.retry == nil {
		c.retry = make(map[string]retryState)
	}
	st := c.retry[songID]
	delay := retryCap
	if st.failures < 10 {
		delay = retryBase << st.failures
		if delay > retryCap {
			delay = retryCap
		}
	}
	st.failures++
	st.nextAttempt = now.Add(delay)
	c.retry[songID] = st
	return delay
}

func (c *Checker) clearFailure(songID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.retry, songID)
}

func (c *Checker) clock() Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return systemClock{}
}

func (c *Checker) logger() *logrus.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.StandardLogger()
}
