package usgs

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ianastafeva/quake-parametric-risk/internal/domain"
	"github.com/ianastafeva/quake-parametric-risk/internal/observability"
)

// lookback is the historical window each catalogue query covers: 200 years
// of 365.24 days, ending at the query's end date.
var lookback = time.Duration(200 * 365.24 * 24 * float64(time.Hour))

// Client implements domain.CatalogueFetcher against the USGS FDSN event web
// service (https://earthquake.usgs.gov/fdsnws/event/1/).
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a USGS catalogue client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchCatalogue downloads and parses the CSV catalogue for one query. A
// zero EndDate means "up to now" (via the package clock).
func (c *Client) FetchCatalogue(ctx context.Context, q domain.CatalogueQuery) ([]domain.CatalogueEvent, error) {
	end := q.EndDate
	if end.IsZero() {
		end = clock.Now().UTC()
	}

	fullURL := c.queryURL(q, end)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.CatalogueFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("catalogue request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.CatalogueFetches.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, body)
	}

	events, err := ParseCatalogueCSV(resp.Body)
	if err != nil {
		c.metrics.CatalogueFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}

	c.metrics.CatalogueFetches.WithLabelValues("success").Inc()
	c.metrics.CatalogueFetchDuration.Observe(clock.Since(start).Seconds())
	c.metrics.CatalogueEvents.Observe(float64(len(events)))

	c.logger.Debug("catalogue fetched",
		"lat", q.Center.Lat,
		"lon", q.Center.Lon,
		"radius_km", q.RadiusKm,
		"min_magnitude", q.MinMagnitude,
		"events", len(events),
	)
	return events, nil
}

func (c *Client) queryURL(q domain.CatalogueQuery, end time.Time) string {
	params := url.Values{
		"format":       {"csv"},
		"starttime":    {end.Add(-lookback).Format("2006-01-02")},
		"endtime":      {end.Format("2006-01-02")},
		"minmagnitude": {formatFloat(q.MinMagnitude)},
		"latitude":     {formatFloat(q.Center.Lat)},
		"longitude":    {formatFloat(q.Center.Lon)},
		"maxradiuskm":  {formatFloat(q.RadiusKm)},
	}
	return c.baseURL + "?" + params.Encode()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseCatalogueCSV parses a USGS CSV export into catalogue events. The
// header row names the columns; time, latitude, longitude, and mag are
// required, depth, id, and place are carried when present. Rows that fail
// to parse reject the whole catalogue.
func ParseCatalogueCSV(r io.Reader) ([]domain.CatalogueEvent, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty catalogue response")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[h] = i
	}
	for _, required := range []string{"time", "latitude", "longitude", "mag"} {
		if _, ok := colIdx[required]; !ok {
			return nil, fmt.Errorf("catalogue csv missing %q column", required)
		}
	}

	events := make([]domain.CatalogueEvent, 0, len(rows)-1)
	for n, row := range rows[1:] {
		ev := domain.CatalogueEvent{
			Time:  field(row, colIdx, "time"),
			ID:    field(row, colIdx, "id"),
			Place: field(row, colIdx, "place"),
		}

		if ev.Latitude, err = parseFloatField(row, colIdx, "latitude"); err != nil {
			return nil, fmt.Errorf("catalogue row %d: %w", n+1, err)
		}
		if ev.Longitude, err = parseFloatField(row, colIdx, "longitude"); err != nil {
			return nil, fmt.Errorf("catalogue row %d: %w", n+1, err)
		}
		if ev.Magnitude, err = parseFloatField(row, colIdx, "mag"); err != nil {
			return nil, fmt.Errorf("catalogue row %d: %w", n+1, err)
		}
		// Depth is occasionally blank in old catalogue entries.
		if s := field(row, colIdx, "depth"); s != "" {
			if ev.DepthKm, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("catalogue row %d: depth: %w", n+1, err)
			}
		}

		events = append(events, ev)
	}
	return events, nil
}

func field(row []string, colIdx map[string]int, name string) string {
	i, ok := colIdx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseFloatField(row []string, colIdx map[string]int, name string) (float64, error) {
	s := field(row, colIdx, name)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, err)
	}
	return v, nil
}
