package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ricardo-scout/classifier"
	"ricardo-scout/config"
	"ricardo-scout/models"
	"ricardo-scout/scraper/ricardo"
)

// RunSearch executes one full command invocation: acquire a browser
// session, page through the search results, extract and classify every
// candidate, and render the aggregate. The session is released on
// every path. Partial results survive navigation timeouts; only a
// failed browser launch or a render failure is returned as an error.
func RunSearch(ctx context.Context, cfg *config.Config, log *slog.Logger, mgr *ricardo.Manager, q models.SearchQuery) (models.ResultSet, error) {
	searchID := uuid.NewString()[:8]
	log = log.With("search_id", searchID, "query", q.Name())
	log.Info("search started", "format", q.Format)

	ctx, cancel := context.WithTimeout(ctx, cfg.SearchTimeout)
	defer cancel()

	session, err := mgr.Acquire(ctx)
	if err != nil {
		return models.ResultSet{}, fmt.Errorf("search %s: %w", searchID, err)
	}
	defer session.Release()

	details, err := ricardo.NewDetailFetcher(cfg, log)
	if err != nil {
		return models.ResultSet{}, fmt.Errorf("search %s: %w", searchID, err)
	}

	nav := ricardo.NewNavigator(cfg, log)
	ext := ricardo.NewExtractor(cfg, log, details)

	classified := collectListings(ctx, cancel, log, nav.Search(ctx, session, q), ext, cfg.MaxItems)

	rs, err := Aggregate(classified, q)
	if err != nil {
		return models.ResultSet{}, fmt.Errorf("search %s: %w", searchID, err)
	}

	log.Info("search finished", "candidates", len(classified), "matches", len(rs.Listings))
	return rs, nil
}

// collectListings drains the navigator's handle sequence through the
// extractor and classifier. cancel stops the producer once enough
// included listings have been collected.
func collectListings(ctx context.Context, cancel context.CancelFunc, log *slog.Logger, handles <-chan ricardo.Handle, ext *ricardo.Extractor, maxItems int) []models.ClassifiedListing {
	var out []models.ClassifiedListing
	included := 0

	for h := range handles {
		raw := ext.Extract(ctx, h)
		if raw == nil {
			continue
		}

		c := classifier.Classify(*raw)
		out = append(out, c)

		if c.Included {
			included++
			log.Debug("listing accepted", "ad_url", c.AdURL, "seller", c.SellerName)
		} else {
			log.Debug("listing rejected", "ad_url", c.AdURL, "reasons", c.RejectionReasons)
		}

		if maxItems > 0 && included >= maxItems {
			cancel()
			break
		}
	}

	return out
}
