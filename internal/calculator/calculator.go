// Package calculator holds the derived-value computations shared by campaigns,
// donations and goals. Every function here is pure.
package calculator

import (
	"math"

	"Sahaaya/internal/apperror"
)

// DefaultPlatformFeePercent is applied when no fee is configured.
const DefaultPlatformFeePercent = 10.0

// CalculateDonationAfterFee returns amount minus the platform fee.
func CalculateDonationAfterFee(amount, platformFeePercent float64) (float64, error) {
	if !(amount > 0) {
		return 0, apperror.Validation("donation amount must be greater than 0")
	}
	fee := amount * platformFeePercent / 100
	return amount - fee, nil
}

// PopularityScore is the participant-to-target ratio as 0-100, capped at 100.
func PopularityScore(participantCount, targetParticipants int) int {
	if targetParticipants <= 0 || participantCount <= 0 {
		return 0
	}
	return ratioPercent(float64(participantCount), float64(targetParticipants))
}

// CompletionPercentage is collected/target as 0-100, capped at 100.
func CompletionPercentage(collectedAmount, targetAmount float64) int {
	if !(targetAmount > 0) || !(collectedAmount > 0) {
		return 0
	}
	return ratioPercent(collectedAmount, targetAmount)
}

// TotalDonations sums amounts. Missing or malformed amounts count as 0.
func TotalDonations(amounts []float64) float64 {
	total := 0.0
	for _, amount := range amounts {
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			continue
		}
		total += amount
	}
	return total
}

func ratioPercent(part, whole float64) int {
	return int(math.Round(math.Min(part/whole, 1) * 100))
}
