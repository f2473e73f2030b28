// Package domain models historical earthquake catalogues and the parametric
// payout logic computed over them.
//
// # Data Source
//
// Catalogues originate from the USGS FDSN event web service
// (https://earthquake.usgs.gov/fdsnws/event/1/), queried in CSV format for a
// circular region around an insured location over a ~200-year historical
// window. The adapter layer downloads and parses the CSV; this package only
// sees the resulting rows.
//
// # Catalogue Conventions
//
// Time format:
//
//	ISO-8601 UTC, e.g. "2021-10-21T12:34:56.789Z". Only the leading four
//	characters (the calendar year) are significant to the payout engine;
//	the rest of the timestamp is carried for reporting.
//
// Magnitude:
//
//	Seismic magnitude as reported by USGS (mixed magnitude types, treated
//	uniformly). No enforced range; realistic values run roughly 0-10.
//
// Distance:
//
//	Great-circle distance in kilometers from the insured location, computed
//	with the haversine formula on a sphere of radius 6378 km. Always
//	non-negative. The catalogue provider fills this column before the
//	payout engine runs.
//
// # Parametric Payouts
//
// A payout schedule is a table of bands, each pairing a maximum qualifying
// distance and a minimum qualifying magnitude with a fixed monetary amount.
// An event triggers a band when it is both close enough and strong enough;
// payouts are determined purely by these measured parameters, never by
// assessed damage.
//
// Per calendar year the engine records the single largest payout any event
// of that year triggered. Payouts within a year do not stack: one
// sufficiently large event determines the year. Years whose events trigger
// nothing are recorded with an explicit zero, which matters downstream:
// the burning cost (the standard actuarial expected-annual-loss measure)
// divides by the length of the requested interval, so "present with zero"
// and "absent" are deliberately distinguishable states.
package domain
