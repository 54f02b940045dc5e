package fetcher

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/bookmarks/internal/retry"
)

// PageFetcher downloads and parses a single page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// RobotsChecker decides whether a URL may be fetched
type RobotsChecker interface {
	Allowed(ctx context.Context, url string) (bool, error)
}

// Extractor produces a best-effort Page for a URL. It never fails: fetch and
// parse errors are logged and an empty Page is returned instead.
type Extractor struct {
	fetcher PageFetcher
	robots  RobotsChecker
	policy  retry.Policy
	logger  *logrus.Entry
}

// ExtractorOption configures optional Extractor dependencies
type ExtractorOption func(*Extractor)

// WithRobots makes the extractor skip URLs disallowed by robots.txt
func WithRobots(robots RobotsChecker) ExtractorOption {
	return func(e *Extractor) {
		e.robots = robots
	}
}

func NewExtractor(fetcher PageFetcher, policy retry.Policy, logger *logrus.Entry, opts ...ExtractorOption) *Extractor {
	if logger == nil {
		logger = logrus.WithField("component", "extractor")
	}
	e := &Extractor{
		fetcher: fetcher,
		policy:  policy,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the title, description and main content of the page at url
func (e *Extractor) Extract(ctx context.Context, url string) Page {
	log := e.logger.WithField("url", url)

	if IsRawIPHost(url) {
		log.Debug("Skipping raw IP host")
		return Page{}
	}

	if e.robots != nil {
		allowed, err := e.robots.Allowed(ctx, url)
		if err != nil {
			log.WithError(err).Warn("Robots check failed, allowing request")
		} else if !allowed {
			log.Info("URL blocked by robots.txt")
			return Page{}
		}
	}

	var page *Page
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		p, err := e.fetcher.Fetch(ctx, url)
		if err != nil {
			if !IsTransient(err) {
				return retry.Permanent(err)
			}
			log.WithError(err).Debug("Transient fetch error")
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to fetch page")
		return Page{}
	}
	if page == nil {
		return Page{}
	}
	return *page
}
