// Package catalogue assembles historical earthquake catalogues for one or
// many insured locations on top of a domain.CatalogueFetcher.
package catalogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ianastafeva/quake-parametric-risk/internal/domain"
)

// Options narrows a catalogue request. Zero values fall back to the
// domain defaults (200 km radius, magnitude 4.5).
type Options struct {
	RadiusKm     float64
	MinMagnitude float64
	EndDate      time.Time
}

func (o Options) withDefaults() Options {
	if o.RadiusKm == 0 {
		o.RadiusKm = domain.DefaultSearchRadiusKm
	}
	if o.MinMagnitude == 0 {
		o.MinMagnitude = domain.DefaultMinMagnitude
	}
	return o
}

// Provider fetches catalogues and prepares them for payout computation.
type Provider struct {
	fetcher domain.CatalogueFetcher
	logger  *slog.Logger
}

// NewProvider creates a catalogue provider.
func NewProvider(fetcher domain.CatalogueFetcher, logger *slog.Logger) *Provider {
	return &Provider{fetcher: fetcher, logger: logger}
}

// Catalogue returns the historical events around one insured location, with
// epicentral distances to that location filled in.
func (p *Provider) Catalogue(ctx context.Context, insured domain.GeoPoint, opts Options) ([]domain.CatalogueEvent, error) {
	opts = opts.withDefaults()

	events, err := p.fetcher.FetchCatalogue(ctx, domain.CatalogueQuery{
		Center:       insured,
		RadiusKm:     opts.RadiusKm,
		MinMagnitude: opts.MinMagnitude,
		EndDate:      opts.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch catalogue for (%g, %g): %w", insured.Lat, insured.Lon, err)
	}

	domain.FillDistances(events, insured)
	return events, nil
}

// MergedCatalogue fetches the catalogues for several locations concurrently
// and merges them into one de-duplicated event set. Distances are not
// filled in: a merged catalogue has no single reference point, so callers
// apply FillDistances per asset. Any per-location failure fails the merge.
func (p *Provider) MergedCatalogue(ctx context.Context, assets []domain.GeoPoint, opts Options) ([]domain.CatalogueEvent, error) {
	opts = opts.withDefaults()

	results := make([][]domain.CatalogueEvent, len(assets))
	errs := make([]error, len(assets))

	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset domain.GeoPoint) {
			defer wg.Done()
			events, err := p.fetcher.FetchCatalogue(ctx, domain.CatalogueQuery{
				Center:       asset,
				RadiusKm:     opts.RadiusKm,
				MinMagnitude: opts.MinMagnitude,
				EndDate:      opts.EndDate,
			})
			if err != nil {
				errs[i] = fmt.Errorf("fetch catalogue for (%g, %g): %w", asset.Lat, asset.Lon, err)
				return
			}
			results[i] = events
		}(i, asset)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	merged := mergeEvents(results)
	p.logger.Debug("catalogues merged", "assets", len(assets), "events", len(merged))
	return merged, nil
}

// mergeEvents concatenates per-asset catalogues, dropping events already
// seen. Search circles of nearby assets overlap, so the same earthquake
// shows up in several catalogues.
func mergeEvents(results [][]domain.CatalogueEvent) []domain.CatalogueEvent {
	var total int
	for _, events := range results {
		total += len(events)
	}

	seen := make(map[string]struct{}, total)
	merged := make([]domain.CatalogueEvent, 0, total)
	for _, events := range results {
		for _, ev := range events {
			key := dedupKey(ev)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, ev)
		}
	}
	return merged
}

func dedupKey(ev domain.CatalogueEvent) string {
	if ev.ID != "" {
		return ev.ID
	}
	return fmt.Sprintf("%s|%g|%g|%g", ev.Time, ev.Latitude, ev.Longitude, ev.Magnitude)
}
