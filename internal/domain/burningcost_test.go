package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurningCost_DividesByRequestedIntervalLength(t *testing.T) {
	// 2001 is present with an explicit zero; 2002-2004 are absent entirely.
	// The denominator is still the 5-year interval, not the 2 observed years.
	payouts := YearlyPayouts{2000: 100, 2001: 0}

	cost, err := BurningCost(payouts, 2000, 2004)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, cost, 1e-12)
}

func TestBurningCost_SingleYear(t *testing.T) {
	cost, err := BurningCost(YearlyPayouts{2001: 500}, 2001, 2001)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, cost, 1e-12)
}

func TestBurningCost_IgnoresYearsOutsideInterval(t *testing.T) {
	payouts := YearlyPayouts{1950: 9999, 2000: 100, 2010: 9999}

	cost, err := BurningCost(payouts, 2000, 2009)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, cost, 1e-12)
}

func TestBurningCost_NoDataInRange(t *testing.T) {
	payouts := YearlyPayouts{2000: 100}

	_, err := BurningCost(payouts, 1900, 1901)
	assert.ErrorIs(t, err, ErrNoYearsInRange)
}

func TestBurningCost_EmptyMapping(t *testing.T) {
	_, err := BurningCost(YearlyPayouts{}, DefaultStartYear, DefaultEndYear)
	assert.ErrorIs(t, err, ErrNoYearsInRange)
}

func TestBurningCost_InvalidInterval(t *testing.T) {
	_, err := BurningCost(YearlyPayouts{2000: 100}, 2010, 2000)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoYearsInRange)
	assert.Contains(t, err.Error(), "invalid interval")
}
