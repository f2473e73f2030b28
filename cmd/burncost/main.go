// Command burncost prices a single location from the command line. It reads
// the earthquake catalogue either from a local USGS CSV export or live from
// the USGS web service, applies a payout schedule, and prints the yearly
// payouts and the burning cost.
//
// Usage:
//
//	go run ./cmd/burncost \
//	  -lat -20 -lon -175 \
//	  -schedule schedule.csv \
//	  [-catalogue catalogue.csv] \
//	  [-radius 200] [-minmag 4.5] [-start 1952] [-end 2021]
//
// The schedule CSV carries a Radius,Magnitude,Payout header.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ianastafeva/quake-parametric-risk/internal/adapter/usgs"
	"github.com/ianastafeva/quake-parametric-risk/internal/catalogue"
	"github.com/ianastafeva/quake-parametric-risk/internal/domain"
	"github.com/ianastafeva/quake-parametric-risk/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	lat := flag.Float64("lat", 0, "insured location latitude")
	lon := flag.Float64("lon", 0, "insured location longitude")
	schedulePath := flag.String("schedule", "", "payout schedule CSV (Radius,Magnitude,Payout)")
	cataloguePath := flag.String("catalogue", "", "local catalogue CSV; omit to fetch from USGS")
	radius := flag.Float64("radius", domain.DefaultSearchRadiusKm, "catalogue search radius in km")
	minMag := flag.Float64("minmag", domain.DefaultMinMagnitude, "minimum catalogue magnitude")
	start := flag.Int("start", domain.DefaultStartYear, "first year of the burning cost interval")
	end := flag.Int("end", domain.DefaultEndYear, "last year of the burning cost interval")
	baseURL := flag.String("usgs-url", "https://earthquake.usgs.gov/fdsnws/event/1/query", "USGS FDSN query endpoint")
	flag.Parse()

	if *schedulePath == "" {
		flag.Usage()
		return errors.New("missing required flag: -schedule")
	}

	schedule, err := loadSchedule(*schedulePath)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	insured := domain.GeoPoint{Lat: *lat, Lon: *lon}

	events, err := loadCatalogue(*cataloguePath, *baseURL, insured, *radius, *minMag)
	if err != nil {
		return err
	}
	fmt.Printf("catalogue: %d events within %g km of (%g, %g)\n", len(events), *radius, *lat, *lon)

	payouts, err := domain.ComputePayouts(events, schedule)
	if err != nil {
		return fmt.Errorf("compute payouts: %w", err)
	}
	printYearlyPayouts(payouts)

	cost, err := domain.BurningCost(payouts, *start, *end)
	switch {
	case errors.Is(err, domain.ErrNoYearsInRange):
		fmt.Printf("burning cost [%d, %d]: no catalogue years in interval\n", *start, *end)
		return nil
	case err != nil:
		return fmt.Errorf("burning cost: %w", err)
	}

	fmt.Printf("burning cost [%d, %d]: %.2f\n", *start, *end, cost)
	return nil
}

// loadCatalogue reads a local CSV export when a path is given, otherwise
// queries the USGS web service, and fills in epicentral distances.
func loadCatalogue(path, baseURL string, insured domain.GeoPoint, radius, minMag float64) ([]domain.CatalogueEvent, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open catalogue: %w", err)
		}
		defer f.Close()

		events, err := usgs.ParseCatalogueCSV(f)
		if err != nil {
			return nil, fmt.Errorf("parse catalogue: %w", err)
		}
		domain.FillDistances(events, insured)
		return events, nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetrics()
	client := usgs.NewClient(baseURL, 60*time.Second, logger, metrics)
	provider := catalogue.NewProvider(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	events, err := provider.Catalogue(ctx, insured, catalogue.Options{
		RadiusKm:     radius,
		MinMagnitude: minMag,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch catalogue: %w", err)
	}
	return events, nil
}

// loadSchedule parses a payout schedule CSV with a Radius,Magnitude,Payout header.
func loadSchedule(path string) (domain.Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.New("no schedule rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[h] = i
	}
	for _, required := range []string{"Radius", "Magnitude", "Payout"} {
		if _, ok := colIdx[required]; !ok {
			return nil, fmt.Errorf("schedule csv missing %q column", required)
		}
	}

	schedule := make(domain.Schedule, 0, len(rows)-1)
	for n, row := range rows[1:] {
		band := domain.PayoutBand{}
		if band.RadiusKm, err = strconv.ParseFloat(row[colIdx["Radius"]], 64); err != nil {
			return nil, fmt.Errorf("schedule row %d: radius: %w", n+1, err)
		}
		if band.MinMagnitude, err = strconv.ParseFloat(row[colIdx["Magnitude"]], 64); err != nil {
			return nil, fmt.Errorf("schedule row %d: magnitude: %w", n+1, err)
		}
		if band.Payout, err = strconv.ParseFloat(row[colIdx["Payout"]], 64); err != nil {
			return nil, fmt.Errorf("schedule row %d: payout: %w", n+1, err)
		}
		schedule = append(schedule, band)
	}
	return schedule, nil
}

func printYearlyPayouts(payouts domain.YearlyPayouts) {
	years := make([]int, 0, len(payouts))
	for year := range payouts {
		years = append(years, year)
	}
	sort.Ints(years)

	for _, year := range years {
		if payouts[year] == 0 {
			continue
		}
		fmt.Printf("  %d: %.2f\n", year, payouts[year])
	}
}
