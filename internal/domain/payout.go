package domain

import (
	"fmt"
	"math"
	"strconv"
)

// MalformedEventError reports a catalogue row the payout engine cannot use.
type MalformedEventError struct {
	Index  int
	Time   string
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("catalogue event %d (time %q): %s", e.Index, e.Time, e.Reason)
}

// ComputePayouts builds the year-to-maximum-triggered-payout mapping for a
// catalogue against a payout schedule.
//
// An event qualifies for a band when its distance is within the band radius
// and its magnitude meets the band threshold; the event's payout is the
// maximum over qualifying bands, 0 when none qualify. A year's payout is the
// maximum over that year's events, never a sum: one sufficiently large event
// determines the year. Every scanned year gets an entry, explicit zeros
// included.
//
// A row with an unusable year or a non-finite magnitude or distance fails
// the whole batch: silently coercing a bad row would corrupt the burning
// cost downstream.
func ComputePayouts(events []CatalogueEvent, schedule Schedule) (YearlyPayouts, error) {
	payouts := make(YearlyPayouts)

	for i, ev := range events {
		year, err := eventYear(ev.Time)
		if err != nil {
			return nil, &MalformedEventError{Index: i, Time: ev.Time, Reason: err.Error()}
		}
		if math.IsNaN(ev.Magnitude) {
			return nil, &MalformedEventError{Index: i, Time: ev.Time, Reason: "magnitude is NaN"}
		}
		if math.IsNaN(ev.DistanceKm) || ev.DistanceKm < 0 {
			return nil, &MalformedEventError{Index: i, Time: ev.Time, Reason: fmt.Sprintf("invalid distance %g", ev.DistanceKm)}
		}

		// Schedules hold tens of bands at most; a linear scan beats any
		// indexing scheme at that size.
		payout := 0.0
		for _, band := range schedule {
			if ev.DistanceKm <= band.RadiusKm && ev.Magnitude >= band.MinMagnitude && band.Payout > payout {
				payout = band.Payout
			}
		}

		if existing, ok := payouts[year]; !ok || payout > existing {
			payouts[year] = payout
		}
	}

	return payouts, nil
}

// eventYear extracts the calendar year from the leading 4 characters of a
// catalogue time string.
func eventYear(t string) (int, error) {
	if len(t) < 4 {
		return 0, fmt.Errorf("time %q too short for a year", t)
	}
	year, err := strconv.Atoi(t[:4])
	if err != nil {
		return 0, fmt.Errorf("non-numeric year %q", t[:4])
	}
	return year, nil
}
