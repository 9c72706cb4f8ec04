package utils

import (
	"math"
	"time"
)

// TripFareResult contains the settled fare for a completed rental and its breakdown
type TripFareResult struct {
	RentalDays  int           `json:"rentalDays"`
	TotalKm     float64       `json:"totalKm"`
	AllowedKm   float64       `json:"allowedKm"`
	ExcessKm    float64       `json:"excessKm"`
	PricePerDay float64       `json:"pricePerDay"`
	TotalFare   float64       `json:"totalFare"`
	Breakdown   FareBreakdown `json:"breakdown"`
}

// FareBreakdown provides detailed fare breakdown
type FareBreakdown struct {
	BaseFare     float64 `json:"baseFare"`
	ExtraCharges float64 `json:"extraCharges"`
	Total        float64 `json:"total"`
}

const (
	AllowedKmPerDay  = 100.0 // Free mileage per rental day
	ExtraChargePerKm = 10.0  // Charged per km beyond the allowance
)

// RentalDays counts the billable days of a booking, inclusive of both ends.
// Any started 24h block counts as a full day.
func RentalDays(start, end time.Time) int {
	if end.Before(start) {
		return 1
	}
	return int(math.Ceil(end.Sub(start).Hours()/24)) + 1
}

// CalculateTripFare settles a rental from the booked rate and the odometer
// readings taken at trip start and end. Callers validate final >= initial.
func CalculateTripFare(pricePerDay float64, start, end time.Time, initialOdometer, finalOdometer float64) TripFareResult {
	days := RentalDays(start, end)

	baseFare := pricePerDay * float64(days)
	totalKm := finalOdometer - initialOdometer
	allowedKm := AllowedKmPerDay * float64(days)
	excessKm := math.Max(0, totalKm-allowedKm)
	extra := excessKm * ExtraChargePerKm

	baseFare = roundMoney(baseFare)
	extra = roundMoney(extra)
	total := roundMoney(baseFare + extra)

	return TripFareResult{
		RentalDays:  days,
		TotalKm:     roundMoney(totalKm),
		AllowedKm:   allowedKm,
		ExcessKm:    roundMoney(excessKm),
		PricePerDay: pricePerDay,
		TotalFare:   total,
		Breakdown: FareBreakdown{
			BaseFare:     baseFare,
			ExtraCharges: extra,
			Total:        total,
		},
	}
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
