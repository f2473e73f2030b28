package domain

import (
	"context"
	"time"
)

// GeoPoint is a WGS-84 latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CatalogueEvent is one row of an earthquake catalogue.
type CatalogueEvent struct {
	ID        string  `json:"id,omitempty"`
	Time      string  `json:"time"` // ISO-8601; the first 4 characters carry the calendar year
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	DepthKm   float64 `json:"depth_km,omitempty"`
	Magnitude float64 `json:"magnitude"`
	Place     string  `json:"place,omitempty"`

	// DistanceKm is the great-circle distance from the insured location,
	// filled by the catalogue provider before the payout engine runs.
	DistanceKm float64 `json:"distance_km"`
}

// PayoutBand is one row of a payout schedule: events within RadiusKm at or
// above MinMagnitude trigger Payout.
type PayoutBand struct {
	RadiusKm     float64 `json:"radius_km"`
	MinMagnitude float64 `json:"min_magnitude"`
	Payout       float64 `json:"payout"`
}

// Schedule is a payout schedule table. Bands may overlap; order is irrelevant.
type Schedule []PayoutBand

// YearlyPayouts maps a calendar year to the maximum payout triggered that
// year. Years scanned without a qualifying event are present with value 0.
type YearlyPayouts map[int]float64

// CatalogueQuery describes one catalogue retrieval: events within RadiusKm
// of Center, at or above MinMagnitude, over the historical window ending at
// EndDate (zero value: now).
type CatalogueQuery struct {
	Center       GeoPoint
	RadiusKm     float64
	MinMagnitude float64
	EndDate      time.Time
}

// CatalogueFetcher retrieves a raw earthquake catalogue for a single query.
type CatalogueFetcher interface {
	FetchCatalogue(ctx context.Context, q CatalogueQuery) ([]CatalogueEvent, error)
}

// RawRequest represents an unprocessed quote request from the source topic.
type RawRequest struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// QuoteRequest is the domain-rich representation after parsing.
type QuoteRequest struct {
	QuoteID        string   `json:"quote_id,omitempty"`
	Location       GeoPoint `json:"location"`
	SearchRadiusKm float64  `json:"search_radius_km,omitempty"`
	MinMagnitude   float64  `json:"min_magnitude,omitempty"`
	EndDate        string   `json:"end_date,omitempty"` // YYYY-MM-DD; defaults to today
	StartYear      int      `json:"start_year,omitempty"`
	EndYear        int      `json:"end_year,omitempty"`
	Schedule       Schedule `json:"schedule"`
}

// QuoteResult is the priced quote destined for the sink topic.
type QuoteResult struct {
	QuoteID       string        `json:"quote_id"`
	Location      GeoPoint      `json:"location"`
	EventCount    int           `json:"event_count"`
	YearlyPayouts YearlyPayouts `json:"yearly_payouts"`
	BurningCost   float64       `json:"burning_cost"`

	// NoData is true when the requested interval holds no catalogue years.
	// A NoData result with BurningCost 0 is not a zero-cost quote.
	NoData bool `json:"no_data,omitempty"`

	StartYear   int       `json:"start_year"`
	EndYear     int       `json:"end_year"`
	ProcessedAt time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
