package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var marchTenth = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestRentalDays(t *testing.T) {
	assert.Equal(t, 1, RentalDays(marchTenth, marchTenth))
	assert.Equal(t, 2, RentalDays(marchTenth, marchTenth.Add(24*time.Hour)))
	assert.Equal(t, 3, RentalDays(marchTenth, marchTenth.Add(48*time.Hour)))
	assert.Equal(t, 4, RentalDays(marchTenth, marchTenth.Add(50*time.Hour)))
}

func TestCalculateTripFareWithinAllowance(t *testing.T) {
	end := marchTenth.Add(48 * time.Hour)
	res := CalculateTripFare(1200, marchTenth, end, 10000, 10250)

	assert.Equal(t, 3, res.RentalDays)
	assert.Equal(t, 250.0, res.TotalKm)
	assert.Equal(t, 300.0, res.AllowedKm)
	assert.Equal(t, 0.0, res.ExcessKm)
	assert.Equal(t, 0.0, res.Breakdown.ExtraCharges)
	assert.Equal(t, 3600.0, res.TotalFare)
}

func TestCalculateTripFareOverAllowance(t *testing.T) {
	end := marchTenth.Add(48 * time.Hour)
	res := CalculateTripFare(1200, marchTenth, end, 10000, 10350)

	assert.Equal(t, 350.0, res.TotalKm)
	assert.Equal(t, 50.0, res.ExcessKm)
	assert.Equal(t, 500.0, res.Breakdown.ExtraCharges)
	assert.Equal(t, 3600.0, res.Breakdown.BaseFare)
	assert.Equal(t, 4100.0, res.TotalFare)
}

func TestCalculateTripFareRoundsToCents(t *testing.T) {
	res := CalculateTripFare(999.999, marchTenth, marchTenth, 0, 100.005)

	assert.Equal(t, 1000.0, res.Breakdown.BaseFare)
	assert.Equal(t, 0.05, res.Breakdown.ExtraCharges)
	assert.Equal(t, 1000.05, res.TotalFare)
}
