package service

import (
	"database/sql"
	"math"
)

// cashFlow is one dated money movement of an internal-rate-of-return
// computation, measured in days since the start of the series.
type cashFlow struct {
	Days   int
	Amount float64
}

const (
	xirrTolerance     = 1e-8
	xirrMaxIterations = 100
	xirrInitialGuess  = 0.1
)

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// xirr solves for the annualized internal rate of return of the dated cash
// flows plus a terminal valuation, using Newton-Raphson on the net present
// value. It returns NULL when the flows cannot produce a root: no sign
// variation, a vanishing derivative, or no convergence within the iteration
// budget.
func xirr(flows []cashFlow, terminal cashFlow) sql.NullFloat64 {
	all := make([]cashFlow, 0, len(flows)+1)
	all = append(all, flows...)
	if terminal.Amount != 0 {
		all = append(all, terminal)
	}

	if !hasSignVariation(all) {
		return sql.NullFloat64{}
	}

	rate := xirrInitialGuess

	for i := 0; i < xirrMaxIterations; i++ {
		npv, derivative := netPresentValue(all, rate)

		if math.Abs(derivative) < xirrTolerance {
			return sql.NullFloat64{}
		}

		next := rate - npv/derivative
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= -1 {
			return sql.NullFloat64{}
		}

		if math.Abs(next-rate) < xirrTolerance {
			return nullFloat(next)
		}

		rate = next
	}

	return sql.NullFloat64{}
}

func hasSignVariation(flows []cashFlow) bool {
	var positive, negative bool
	for _, f := range flows {
		if f.Amount > 0 {
			positive = true
		}
		if f.Amount < 0 {
			negative = true
		}
	}
	return positive && negative
}

// netPresentValue evaluates the NPV of the flows at the given rate along
// with its derivative with respect to the rate. Exponents scale day offsets
// to years on a 365-day basis.
func netPresentValue(flows []cashFlow, rate float64) (npv, derivative float64) {
	for _, f := range flows {
		years := float64(f.Days) / 365
		discount := math.Pow(1+rate, years)

		npv += f.Amount / discount
		derivative -= years * f.Amount / (discount * (1 + rate))
	}
	return npv, derivative
}
