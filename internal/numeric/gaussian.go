// Package numeric provides the scalar and small-matrix building blocks used
// by the Kalman layer: a stable log(erfc(x)) approximation, truncated
// standard-normal moments, and dense matrix helpers for the unscented
// transform.
package numeric

import "math"

// Logerfc returns log(erfc(x)) using a Horner-form Chebyshev approximation
// in t = 1/(1+x/2), accurate to about 1e-7 for x >= 0. For negative x it
// reduces via erfc(-x) = 2 - erfc(x).
func Logerfc(x float64) float64 {
	if x < 0 {
		return math.Log(2 - math.Exp(Logerfc(-x)))
	}
	t := 1.0 / (1.0 + 0.5*x)
	poly := -1.26551223 +
		t*(1.00002368+
			t*(0.37409196+
				t*(0.09678418+
					t*(-0.18628806+
						t*(0.27886807+
							t*(-1.13520398+
								t*(1.48851587+
									t*(-0.82215223+
										t*(0.17087277)))))))))
	return math.Log(t) - x*x + poly
}

const sqrt2 = math.Sqrt2
const invSqrt2Pi = 0.3989422804014327 // 1/sqrt(2*pi)

// LeftTruncateGaussian returns the statistics of X ~ N(0,1) conditioned on
// a < X: log-probability of the event, updated mean, updated variance.
func LeftTruncateGaussian(a float64) (logp, mean, variance float64) {
	var l float64
	if a > 0.0 {
		l = Logerfc(a/sqrt2) - math.Log(2)
	} else {
		l = math.Log(math.Erfc(a/sqrt2) / 2)
	}
	alpha := sqrt2 / (2 * math.Sqrt(math.Pi))
	c := math.Exp(-(a*a)/2 - l)

	u := alpha * c
	variance = alpha*c*(a-2*u) + u*u + 1.0
	return l, u, variance
}

// RightTruncateGaussian returns the statistics of X ~ N(0,1) conditioned on
// X < a: log-probability of the event, updated mean, updated variance.
func RightTruncateGaussian(a float64) (logp, mean, variance float64) {
	var l float64
	if a < 0.0 {
		l = Logerfc(-a/sqrt2) - math.Log(2)
	} else {
		l = math.Log(math.Erfc(-a/sqrt2) / 2)
	}
	alpha := -sqrt2 / (2 * math.Sqrt(math.Pi))
	c := math.Exp(-(a*a)/2 - l)

	u := alpha * c
	variance = alpha*c*(a-2*u) + u*u + 1.0
	return l, u, variance
}

// TruncateGaussian returns the statistics of X ~ N(0,1) conditioned on
// a < X < b: log-probability of the event, updated mean, updated variance.
// a may be math.Inf(-1) and b may be math.Inf(1).
func TruncateGaussian(a, b float64) (logp, mean, variance float64) {
	if math.IsInf(a, -1) {
		return RightTruncateGaussian(b)
	}
	if math.IsInf(b, 1) {
		return LeftTruncateGaussian(a)
	}

	var sign, l float64
	if sgn(a) != sgn(b) {
		sign = 1.0
		p := (math.Erf(b/sqrt2) - math.Erf(a/sqrt2)) / 2
		l = math.Log(p)
	} else {
		sign = sgn(a)
		if sign < 0 {
			a, b = -b, -a
		}
		e := Logerfc(a / sqrt2)
		f := Logerfc(b / sqrt2)
		l = e + math.Log(1.0-math.Exp(f-e)) - math.Log(2)
	}

	alpha := sqrt2 / (2 * math.Sqrt(math.Pi))
	c := math.Exp(-(a*a)/2 - l)
	d := math.Exp(-(b*b)/2 - l)

	u := alpha * (c - d)
	variance = alpha*(c*(a-2*u)-d*(b-2*u)) + u*u + 1.0
	return l, u * sign, variance
}

// sgn returns the sign of x, matching numpy.sign: 0 for x == 0.
func sgn(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
