package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Defaults applied to quote requests that omit the catalogue search options.
const (
	DefaultSearchRadiusKm = 200.0
	DefaultMinMagnitude   = 4.5
)

// ParseQuoteRequest deserializes and validates a raw quote request message,
// applying defaults for omitted fields. Requests without a quote_id get a
// deterministic one derived from their key fields, so replays produce the
// same result key downstream.
func ParseQuoteRequest(raw RawRequest) (QuoteRequest, error) {
	var req QuoteRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return QuoteRequest{}, fmt.Errorf("parse quote request: %w", err)
	}

	if req.Location.Lat < -90 || req.Location.Lat > 90 {
		return QuoteRequest{}, fmt.Errorf("quote request: latitude %g out of range", req.Location.Lat)
	}
	if req.Location.Lon < -180 || req.Location.Lon > 180 {
		return QuoteRequest{}, fmt.Errorf("quote request: longitude %g out of range", req.Location.Lon)
	}
	if len(req.Schedule) == 0 {
		return QuoteRequest{}, fmt.Errorf("quote request: empty payout schedule")
	}
	for i, band := range req.Schedule {
		if band.RadiusKm < 0 {
			return QuoteRequest{}, fmt.Errorf("quote request: band %d: negative radius %g", i, band.RadiusKm)
		}
		if band.Payout < 0 {
			return QuoteRequest{}, fmt.Errorf("quote request: band %d: negative payout %g", i, band.Payout)
		}
	}
	if req.EndDate != "" {
		if _, err := time.Parse("2006-01-02", req.EndDate); err != nil {
			return QuoteRequest{}, fmt.Errorf("quote request: end_date: %w", err)
		}
	}

	if req.SearchRadiusKm == 0 {
		req.SearchRadiusKm = DefaultSearchRadiusKm
	}
	if req.SearchRadiusKm < 0 {
		return QuoteRequest{}, fmt.Errorf("quote request: negative search radius %g", req.SearchRadiusKm)
	}
	if req.StartYear == 0 {
		req.StartYear = DefaultStartYear
	}
	if req.EndYear == 0 {
		req.EndYear = DefaultEndYear
	}
	if req.EndYear < req.StartYear {
		return QuoteRequest{}, fmt.Errorf("quote request: invalid interval [%d, %d]", req.StartYear, req.EndYear)
	}
	if req.MinMagnitude == 0 {
		req.MinMagnitude = DefaultMinMagnitude
	}
	if req.QuoteID == "" {
		req.QuoteID = generateQuoteID(req)
	}

	return req, nil
}

// generateQuoteID derives a deterministic ID from the request's key fields.
func generateQuoteID(req QuoteRequest) string {
	input := fmt.Sprintf("%.4f|%.4f|%g|%g|%d|%d|%d",
		req.Location.Lat, req.Location.Lon,
		req.SearchRadiusKm, req.MinMagnitude,
		req.StartYear, req.EndYear, len(req.Schedule),
	)
	hash := sha256.Sum256([]byte(input))
	return "quote-" + hex.EncodeToString(hash[:8])
}

// NewQuoteResult assembles the result envelope for a priced request,
// stamping ProcessedAt from the package clock. BurningCost and NoData are
// filled by the caller once the aggregation outcome is known.
func NewQuoteResult(req QuoteRequest, payouts YearlyPayouts, eventCount int) QuoteResult {
	return QuoteResult{
		QuoteID:       req.QuoteID,
		Location:      req.Location,
		EventCount:    eventCount,
		YearlyPayouts: payouts,
		StartYear:     req.StartYear,
		EndYear:       req.EndYear,
		ProcessedAt:   clock.Now(),
	}
}

// SerializeQuoteResult marshals a result into an output event for the sink topic.
func SerializeQuoteResult(result QuoteResult) (OutputEvent, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize quote result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(result.QuoteID),
		Value: data,
		Headers: map[string]string{
			"quote_id":     result.QuoteID,
			"processed_at": result.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
