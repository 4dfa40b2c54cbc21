package linesearch

import "math"

const (
	// trial steps before bracketing stay within [stp+extrapLower·Δ, stp+extrapUpper·Δ]
	extrapLower = 1.1
	extrapUpper = 4.0
	// bisect when the bracket did not shrink below shrinkFactor of its
	// width two iterations ago
	shrinkFactor = 0.66
)

// endpoint is a step with its function value and directional derivative.
type endpoint struct {
	stp float64
	f   float64
	g   float64
}

// interval is the search interval. lo holds the step with the lowest value
// seen so far, hi the other end. Once bracketed is true a step satisfying
// the Wolfe conditions lies between them.
type interval struct {
	lo, hi    endpoint
	bracketed bool
}

// bounds returns the interval ends in increasing order.
func (iv *interval) bounds() (float64, float64) {
	return math.Min(iv.lo.stp, iv.hi.stp), math.Max(iv.lo.stp, iv.hi.stp)
}

// cubicGamma computes the discriminant term of the cubic interpolating
// (a.f, a.g) and (b.f, b.g), scaled against overflow. theta is the shared
// curvature term. A negative radicand from rounding is clamped to zero.
func cubicGamma(theta, da, db float64) float64 {
	s := math.Max(math.Max(math.Abs(theta), math.Abs(da)), math.Abs(db))
	if s == 0 {
		return 0
	}
	r := (theta/s)*(theta/s) - (da/s)*(db/s)
	if r < 0 {
		r = 0
	}
	return s * math.Sqrt(r)
}

// update chooses the next trial step from the newly evaluated point t and
// shrinks the interval. stmin and stmax bound the extrapolation when no
// minimiser has been bracketed yet.
//
// The four cases follow More and Thuente (1994), "Line search algorithms
// with guaranteed sufficient decrease", section 4.
func (iv *interval) update(t endpoint, stmin, stmax float64) float64 {
	x, y := iv.lo, iv.hi
	sgnd := t.g * math.Copysign(1, x.g)

	var next float64
	switch {
	case t.f > x.f:
		// Higher function value: the minimum is bracketed. Take the cubic
		// step if it is closer to x, otherwise the cubic/quadratic average.
		theta := 3*(x.f-t.f)/(t.stp-x.stp) + x.g + t.g
		gamma := cubicGamma(theta, x.g, t.g)
		if t.stp < x.stp {
			gamma = -gamma
		}
		p := (gamma - x.g) + theta
		q := ((gamma - x.g) + gamma) + t.g
		stpc := x.stp + (p/q)*(t.stp-x.stp)
		stpq := x.stp + ((x.g/((x.f-t.f)/(t.stp-x.stp)+x.g))/2)*(t.stp-x.stp)
		if math.Abs(stpc-x.stp) < math.Abs(stpq-x.stp) {
			next = stpc
		} else {
			next = stpc + (stpq-stpc)/2
		}
		iv.bracketed = true

	case sgnd < 0:
		// Lower value, derivatives of opposite sign: bracketed. Take the
		// cubic step if it is farther from t than the secant step.
		theta := 3*(x.f-t.f)/(t.stp-x.stp) + x.g + t.g
		gamma := cubicGamma(theta, x.g, t.g)
		if t.stp > x.stp {
			gamma = -gamma
		}
		p := (gamma - t.g) + theta
		q := ((gamma - t.g) + gamma) + x.g
		stpc := t.stp + (p/q)*(x.stp-t.stp)
		stpq := t.stp + (t.g/(t.g-x.g))*(x.stp-t.stp)
		if math.Abs(stpc-t.stp) > math.Abs(stpq-t.stp) {
			next = stpc
		} else {
			next = stpq
		}
		iv.bracketed = true

	case math.Abs(t.g) < math.Abs(x.g):
		// Lower value, same sign, derivative magnitude decreasing. Use the
		// cubic only if it tends to infinity in the step direction or its
		// minimum lies beyond t.
		theta := 3*(x.f-t.f)/(t.stp-x.stp) + x.g + t.g
		gamma := cubicGamma(theta, x.g, t.g)
		if t.stp > x.stp {
			gamma = -gamma
		}
		p := (gamma - t.g) + theta
		q := (gamma + (x.g - t.g)) + gamma
		r := p / q
		var stpc float64
		switch {
		case r < 0 && gamma != 0:
			stpc = t.stp + r*(x.stp-t.stp)
		case t.stp > x.stp:
			stpc = stmax
		default:
			stpc = stmin
		}
		stpq := t.stp + (t.g/(t.g-x.g))*(x.stp-t.stp)

		if iv.bracketed {
			if math.Abs(stpc-t.stp) < math.Abs(stpq-t.stp) {
				next = stpc
			} else {
				next = stpq
			}
			if t.stp > x.stp {
				next = math.Min(t.stp+shrinkFactor*(y.stp-t.stp), next)
			} else {
				next = math.Max(t.stp+shrinkFactor*(y.stp-t.stp), next)
			}
		} else {
			if math.Abs(stpc-t.stp) > math.Abs(stpq-t.stp) {
				next = stpc
			} else {
				next = stpq
			}
			next = math.Max(stmin, math.Min(stmax, next))
		}

	default:
		// Lower value, same sign, derivative magnitude not decreasing.
		if iv.bracketed {
			theta := 3*(t.f-y.f)/(y.stp-t.stp) + y.g + t.g
			gamma := cubicGamma(theta, y.g, t.g)
			if t.stp > y.stp {
				gamma = -gamma
			}
			p := (gamma - t.g) + theta
			q := ((gamma - t.g) + gamma) + y.g
			next = t.stp + (p/q)*(y.stp-t.stp)
		} else if t.stp > x.stp {
			next = stmax
		} else {
			next = stmin
		}
	}

	if t.f > x.f {
		iv.hi = t
	} else {
		if sgnd < 0 {
			iv.hi = x
		}
		iv.lo = t
	}
	return next
}
