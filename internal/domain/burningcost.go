package domain

import (
	"errors"
	"fmt"
)

// Default burning-cost interval, matching the historical window the payout
// schedules were calibrated against.
const (
	DefaultStartYear = 1952
	DefaultEndYear   = 2021
)

// ErrNoYearsInRange signals that the requested interval overlaps no recorded
// payout year. Callers must not collapse this into a zero burning cost: an
// all-zero history and an empty one are different answers.
var ErrNoYearsInRange = errors.New("no payout years within the requested interval")

// BurningCost averages the yearly payouts over the closed interval
// [startYear, endYear].
//
// The denominator is the requested interval length, not the number of years
// present in the mapping. Years without catalogue events are zero-payout
// years that still count toward the average; dividing by the observed count
// would inflate the estimate whenever the catalogue has gaps.
func BurningCost(payouts YearlyPayouts, startYear, endYear int) (float64, error) {
	if endYear < startYear {
		return 0, fmt.Errorf("invalid interval [%d, %d]", startYear, endYear)
	}

	var sum float64
	found := false
	for year, payout := range payouts {
		if year >= startYear && year <= endYear {
			sum += payout
			found = true
		}
	}
	if !found {
		return 0, ErrNoYearsInRange
	}

	return sum / float64(endYear-startYear+1), nil
}
