// Package calib implements the thermistor calibration pipeline: Steinhart-
// Hart fitting via Gaussian elimination with partial pivoting
// (SteinhartFitter), per-channel runtime dispatch with default fallback
// (CalibrationRuntime), and the data-collection + fit + persist workflow
// (CalibrationPipeline). The package uses only the standard library; the
// solver has no teacher analogue and is written in the same small-package,
// explicit-error-return style as the rest of the retrieved corpus.
package calib

import (
	"fmt"
	"math"

	"github.com/matthewgream/battery-pack-sub000/errcode"
	"github.com/matthewgream/battery-pack-sub000/types"
)

const (
	maxConditionEstimate = 1e15
	minDeterminantAbs    = 1e-10
	maxChannelErrorC     = 5.0
	maxPooledErrorC      = 10.0
)

// SteinhartFitter fits the four-parameter Steinhart-Hart model to a set of
// (temperature, resistance) reference pairs via the normal-equation system
// XᵀX·β = Xᵀy with y_i = 1/(T_i+273.15), x_i = [1, lnR_i, ln²R_i, ln³R_i].
type SteinhartFitter struct{}

// Fit solves for the coefficients given parallel temperature (Celsius) and
// resistance (ohms) slices of equal, matching length >= 4. maxErrorC bounds
// the post-fit residual check (5 for per-channel, 10 for the pooled
// default, per spec §4.1).
func (SteinhartFitter) Fit(temps, resistances []float64, maxErrorC float64) (types.SteinhartCoeffs, error) {
	n := len(temps)
	if n != len(resistances) || n < 4 {
		return types.SteinhartCoeffs{}, errcode.New("calib.fit", errcode.IllConditioned, "need >=4 matched samples")
	}

	var xtx [4][4]float64
	var xty [4]float64
	for i := 0; i < n; i++ {
		if resistances[i] <= 0 {
			return types.SteinhartCoeffs{}, errcode.New("calib.fit", errcode.ResistanceInvalid, "non-positive resistance in sample")
		}
		lr := math.Log(resistances[i])
		x := [4]float64{1, lr, lr * lr, lr * lr * lr}
		y := 1.0 / (temps[i] + 273.15)
		for r := 0; r < 4; r++ {
			xty[r] += x[r] * y
			for c := 0; c < 4; c++ {
				xtx[r][c] += x[r] * x[c]
			}
		}
	}

	if cond := conditionEstimate(xtx); cond > maxConditionEstimate {
		return types.SteinhartCoeffs{}, errcode.New("calib.fit", errcode.IllConditioned,
			fmt.Sprintf("condition estimate %.3g exceeds %.3g", cond, maxConditionEstimate))
	}

	beta, det, err := gauss4(xtx, xty)
	if err != nil {
		return types.SteinhartCoeffs{}, err
	}
	if math.Abs(det) < minDeterminantAbs {
		return types.SteinhartCoeffs{}, errcode.New("calib.fit", errcode.IllConditioned,
			fmt.Sprintf("determinant %.3g below %.3g", det, minDeterminantAbs))
	}

	coeffs := types.SteinhartCoeffs{A: beta[0], B: beta[1], C: beta[2], D: beta[3]}

	maxErr := 0.0
	for i := 0; i < n; i++ {
		predicted := forward(coeffs, resistances[i])
		if e := math.Abs(predicted - temps[i]); e > maxErr {
			maxErr = e
		}
	}
	if maxErr > maxErrorC {
		return types.SteinhartCoeffs{}, errcode.New("calib.fit", errcode.FitOutOfBounds,
			fmt.Sprintf("max residual %.2f°C exceeds %.2f°C", maxErr, maxErrorC))
	}

	return coeffs, nil
}

// forward evaluates the Steinhart-Hart model at a given resistance.
func forward(c types.SteinhartCoeffs, resistanceOhm float64) float64 {
	lr := math.Log(resistanceOhm)
	return 1.0/(c.A+c.B*lr+c.C*lr*lr+c.D*lr*lr*lr) - 273.15
}

// conditionEstimate is a cheap row-sum-norm based estimate, not a true
// singular-value condition number, matching the budget-constrained
// precheck spec §4.1 calls for.
func conditionEstimate(m [4][4]float64) float64 {
	maxRow, minRow := 0.0, math.MaxFloat64
	for r := 0; r < 4; r++ {
		sum := 0.0
		for c := 0; c < 4; c++ {
			sum += math.Abs(m[r][c])
		}
		if sum > maxRow {
			maxRow = sum
		}
		if sum < minRow {
			minRow = sum
		}
	}
	if minRow == 0 {
		return math.Inf(1)
	}
	return maxRow / minRow
}

// gauss4 solves a 4x4 linear system by Gaussian elimination with partial
// pivoting, returning the solution and the (signed) determinant computed
// as the product of pivots with the sign flipped per row swap.
func gauss4(a [4][4]float64, b [4]float64) ([4]float64, float64, error) {
	const size = 4
	det := 1.0

	for col := 0; col < size; col++ {
		pivot := col
		best := math.Abs(a[col][col])
		for r := col + 1; r < size; r++ {
			if v := math.Abs(a[r][col]); v > best {
				best, pivot = v, r
			}
		}
		if best == 0 {
			return [4]float64{}, 0, errcode.New("calib.gauss4", errcode.IllConditioned, "singular system")
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
			det = -det
		}
		det *= a[col][col]

		for r := col + 1; r < size; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < size; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	var x [4]float64
	for r := size - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < size; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, det, nil
}

// FitChannel fits a single channel's reference pairs against the stricter
// per-channel error bound.
func (f SteinhartFitter) FitChannel(temps, resistances []float64) (types.SteinhartCoeffs, error) {
	return f.Fit(temps, resistances, maxChannelErrorC)
}

// FitPooled fits the default strategy against all channels' data flattened
// together, using the looser pooled error bound.
func (f SteinhartFitter) FitPooled(table types.CalibrationTable) (types.SteinhartCoeffs, error) {
	var temps, resistances []float64
	for _, row := range table.Resistances {
		temps = append(temps, table.Temperatures...)
		resistances = append(resistances, row...)
	}
	return f.Fit(temps, resistances, maxPooledErrorC)
}
