package market

import "strings"

const (
	pipSizeStandard = 0.0001
	pipSizeJPY      = 0.01
)

// PipSize returns the price value of one pip for pair: 0.01 for JPY-quoted
// pairs, 0.0001 for everything else.
func PipSize(pair string) float64 {
	if strings.Contains(strings.ToUpper(pair), "JPY") {
		return pipSizeJPY
	}
	return pipSizeStandard
}

// PriceToPips converts a price distance to pips for pair.
func PriceToPips(pair string, distance float64) float64 {
	return distance / PipSize(pair)
}

// PipsToPrice converts a pip distance to a price distance for pair.
func PipsToPrice(pair string, pips float64) float64 {
	return pips * PipSize(pair)
}
