package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ianastafeva/quake-parametric-risk/internal/catalogue"
	"github.com/ianastafeva/quake-parametric-risk/internal/domain"
	"github.com/ianastafeva/quake-parametric-risk/internal/observability"
)

// CatalogueSource supplies the historical events around an insured location.
type CatalogueSource interface {
	Catalogue(ctx context.Context, insured domain.GeoPoint, opts catalogue.Options) ([]domain.CatalogueEvent, error)
}

// QuoteTransformer implements Transformer by pricing quote requests against
// the historical earthquake catalogue.
type QuoteTransformer struct {
	source  CatalogueSource
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a QuoteTransformer.
func NewTransformer(source CatalogueSource, logger *slog.Logger, metrics *observability.Metrics) *QuoteTransformer {
	return &QuoteTransformer{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

func (t *QuoteTransformer) Transform(ctx context.Context, raw domain.RawRequest) (domain.OutputEvent, error) {
	req, err := domain.ParseQuoteRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	result, err := t.Quote(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	return domain.SerializeQuoteResult(result)
}

// Quote prices one validated request: fetch the catalogue, compute yearly
// payouts, and aggregate the burning cost. An interval with no catalogue
// coverage yields a result flagged NoData rather than an error.
func (t *QuoteTransformer) Quote(ctx context.Context, req domain.QuoteRequest) (domain.QuoteResult, error) {
	opts := catalogue.Options{
		RadiusKm:     req.SearchRadiusKm,
		MinMagnitude: req.MinMagnitude,
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return domain.QuoteResult{}, fmt.Errorf("quote %s: end_date: %w", req.QuoteID, err)
		}
		opts.EndDate = end
	}

	events, err := t.source.Catalogue(ctx, req.Location, opts)
	if err != nil {
		return domain.QuoteResult{}, fmt.Errorf("quote %s: %w", req.QuoteID, err)
	}

	payouts, err := domain.ComputePayouts(events, req.Schedule)
	if err != nil {
		return domain.QuoteResult{}, fmt.Errorf("quote %s: %w", req.QuoteID, err)
	}

	result := domain.NewQuoteResult(req, payouts, len(events))

	cost, err := domain.BurningCost(payouts, req.StartYear, req.EndYear)
	switch {
	case errors.Is(err, domain.ErrNoYearsInRange):
		result.NoData = true
		t.metrics.NoDataQuotes.Inc()
		t.logger.Warn("no catalogue years in requested interval",
			"quote_id", req.QuoteID,
			"start_year", req.StartYear,
			"end_year", req.EndYear,
		)
	case err != nil:
		return domain.QuoteResult{}, fmt.Errorf("quote %s: %w", req.QuoteID, err)
	default:
		result.BurningCost = cost
	}

	t.metrics.QuotesComputed.Inc()
	t.logger.Debug("quote priced",
		"quote_id", req.QuoteID,
		"events", len(events),
		"burning_cost", result.BurningCost,
		"no_data", result.NoData,
	)
	return result, nil
}
