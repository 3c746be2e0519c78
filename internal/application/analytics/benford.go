package analytics

import (
	"fmt"

	"github.com/election-trust-api/internal/domain"
)

// Expected leading-digit percentages under Benford's law.
var benfordExpected = map[int]float64{
	1: 30.1, 2: 17.6, 3: 12.5, 4: 9.7, 5: 7.9, 6: 6.7, 7: 5.8, 8: 5.1, 9: 4.6,
}

// chiSquareCritical is the critical value for df=8 at p=0.05. A statistic
// above it means the observed distribution significantly differs from
// Benford's law.
const chiSquareCritical = 15.51

// minCountForBenford filters out figures too small to carry a meaningful
// leading digit.
const minCountForBenford = 10

// BenfordResult is the leading-digit conformance analysis over vote figures.
type BenfordResult struct {
	ObservedCounts      map[int]int     `json:"observed_counts"`
	ObservedPercentages map[int]float64 `json:"observed_percentages"`
	ExpectedPercentages map[int]float64 `json:"expected_percentages"`
	Deviations          map[int]float64 `json:"deviations"`
	AverageDeviation    float64         `json:"average_deviation"`
	ChiSquare           float64         `json:"chi_square"`
	Conforms            bool            `json:"conforms_to_benford"`
	SampleSize          int             `json:"sample_size"`
}

// Interpretation is the human-readable reading of a BenfordResult.
type Interpretation struct {
	Result       string `json:"result"`
	Significance string `json:"significance"`
	Conclusion   string `json:"conclusion"`
}

func leadingDigit(n int) int {
	if n < 0 {
		n = -n
	}
	for n >= 10 {
		n /= 10
	}
	return n
}

// analyzeBenford runs the chi-square conformance test over the given counts.
// Figures below minCountForBenford are dropped first; if nothing survives,
// ErrBadRequest is returned.
func analyzeBenford(counts []int) (*BenfordResult, error) {
	observed := make(map[int]int, 9)
	for d := 1; d <= 9; d++ {
		observed[d] = 0
	}

	sample := 0
	for _, c := range counts {
		if c < minCountForBenford {
			continue
		}
		observed[leadingDigit(c)]++
		sample++
	}
	if sample == 0 {
		return nil, fmt.Errorf("insufficient data for leading-digit analysis: %w", domain.ErrBadRequest)
	}

	percentages := make(map[int]float64, 9)
	deviations := make(map[int]float64, 9)
	var chiSquare, totalDeviation float64
	for d := 1; d <= 9; d++ {
		percentages[d] = 100 * float64(observed[d]) / float64(sample)

		expectedCount := benfordExpected[d] * float64(sample) / 100
		diff := float64(observed[d]) - expectedCount
		chiSquare += diff * diff / expectedCount

		dev := percentages[d] - benfordExpected[d]
		if dev < 0 {
			dev = -dev
		}
		deviations[d] = dev
		totalDeviation += dev
	}

	return &BenfordResult{
		ObservedCounts:      observed,
		ObservedPercentages: percentages,
		ExpectedPercentages: benfordExpected,
		Deviations:          deviations,
		AverageDeviation:    totalDeviation / 9,
		ChiSquare:           chiSquare,
		Conforms:            chiSquare <= chiSquareCritical,
		SampleSize:          sample,
	}, nil
}

func interpret(r *BenfordResult) Interpretation {
	verdict, comparison, evidence := "conforms", "less", "is no"
	if !r.Conforms {
		verdict, comparison, evidence = "does not conform", "greater", "may be"
	}
	return Interpretation{
		Result:       fmt.Sprintf("The vote count distribution %s to Benford's Law.", verdict),
		Significance: fmt.Sprintf("Chi-square value of %.2f is %s than the critical value (%.2f) at p=0.05.", r.ChiSquare, comparison, chiSquareCritical),
		Conclusion:   fmt.Sprintf("Based on this analysis, there %s statistical evidence of potential irregularities in the vote counts.", evidence),
	}
}
