package tracking

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Filter dimensions: state [x, y, z, vx, vy, vz, w, h], measurement
// [x, y, z, w, h]. Constant velocity in position, direct observation of size.
const (
	filterStateDim = 8
	filterMeasDim  = 5
)

// Noise and initialisation constants for the motion filter.
const (
	// BaseProcessNoise is the per-axis process noise before confidence scaling.
	BaseProcessNoise = 0.01
	// MeasurementNoiseVar is the per-axis measurement noise variance.
	MeasurementNoiseVar = 1.0
	// InitialCovariance is the diagonal uncertainty of a freshly seeded filter.
	InitialCovariance = 10.0
	// MinFilterConfidence floors the confidence used for noise inflation so a
	// zero-confidence track cannot produce unbounded process noise.
	MinFilterConfidence = 0.1
)

// ErrSingularCovariance is returned by Update when the innovation covariance
// cannot be inverted. The registry evicts such tracks instead of propagating
// a corrupted state.
var ErrSingularCovariance = errors.New("tracking: singular innovation covariance")

// MotionFilter is an 8-state linear filter with adaptive process noise:
// lower track confidence inflates Q so uncertain tracks widen faster.
type MotionFilter struct {
	x *mat.VecDense // state estimate
	p *mat.Dense    // state covariance

	h *mat.Dense // measurement matrix
	r *mat.Dense // measurement noise
}

// NewMotionFilter seeds a filter from a first measurement [x, y, z, w, h].
// Velocities start at zero with high positional uncertainty.
func NewMotionFilter(meas [filterMeasDim]float64) *MotionFilter {
	x := mat.NewVecDense(filterStateDim, nil)
	x.SetVec(0, meas[0])
	x.SetVec(1, meas[1])
	x.SetVec(2, meas[2])
	x.SetVec(6, meas[3])
	x.SetVec(7, meas[4])

	p := mat.NewDense(filterStateDim, filterStateDim, nil)
	for i := 0; i < filterStateDim; i++ {
		p.Set(i, i, InitialCovariance)
	}

	h := mat.NewDense(filterMeasDim, filterStateDim, nil)
	h.Set(0, 0, 1) // x
	h.Set(1, 1, 1) // y
	h.Set(2, 2, 1) // z
	h.Set(3, 6, 1) // w
	h.Set(4, 7, 1) // h

	r := mat.NewDense(filterMeasDim, filterMeasDim, nil)
	for i := 0; i < filterMeasDim; i++ {
		r.Set(i, i, MeasurementNoiseVar)
	}

	return &MotionFilter{x: x, p: p, h: h, r: r}
}

// transition builds the constant-velocity transition matrix for dt seconds.
func transition(dt float64) *mat.Dense {
	f := mat.NewDense(filterStateDim, filterStateDim, nil)
	for i := 0; i < filterStateDim; i++ {
		f.Set(i, i, 1)
	}
	f.Set(0, 3, dt)
	f.Set(1, 4, dt)
	f.Set(2, 5, dt)
	return f
}

// Predict advances the state by dt seconds. Process noise is scaled by
// 1/max(confidence, MinFilterConfidence) so low-confidence tracks diffuse
// faster. Returns the predicted position and its standard deviations.
func (mf *MotionFilter) Predict(dt, confidence float64) (position, uncertainty [3]float64) {
	f := transition(dt)

	var fx mat.VecDense
	fx.MulVec(f, mf.x)
	mf.x.CopyVec(&fx)

	var fp, fpft mat.Dense
	fp.Mul(f, mf.p)
	fpft.Mul(&fp, f.T())
	mf.p.Copy(&fpft)

	scale := 1.0 / math.Max(confidence, MinFilterConfidence)
	for i := 0; i < filterStateDim; i++ {
		mf.p.Set(i, i, mf.p.At(i, i)+BaseProcessNoise*scale)
	}

	return mf.Position(), mf.PositionUncertainty()
}

// Update folds a measurement [x, y, z, w, h] into the state with the standard
// linear correction. A singular innovation covariance yields
// ErrSingularCovariance and leaves the state untouched.
func (mf *MotionFilter) Update(meas [filterMeasDim]float64) error {
	z := mat.NewVecDense(filterMeasDim, meas[:])

	// Innovation y = z - Hx.
	var hx mat.VecDense
	hx.MulVec(mf.h, mf.x)
	var innov mat.VecDense
	innov.SubVec(z, &hx)

	// S = HPHᵀ + R.
	var hp, s mat.Dense
	hp.Mul(mf.h, mf.p)
	s.Mul(&hp, mf.h.T())
	s.Add(&s, mf.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return ErrSingularCovariance
	}

	// K = PHᵀS⁻¹.
	var pht, k mat.Dense
	pht.Mul(mf.p, mf.h.T())
	k.Mul(&pht, &sInv)

	// x' = x + Ky.
	var ky mat.VecDense
	ky.MulVec(&k, &innov)
	mf.x.AddVec(mf.x, &ky)

	// P' = (I - KH)P.
	var kh mat.Dense
	kh.Mul(&k, mf.h)
	ikh := mat.NewDense(filterStateDim, filterStateDim, nil)
	for i := 0; i < filterStateDim; i++ {
		ikh.Set(i, i, 1)
	}
	ikh.Sub(ikh, &kh)
	var newP mat.Dense
	newP.Mul(ikh, mf.p)
	mf.p.Copy(&newP)

	return nil
}

// Position returns the current position estimate.
func (mf *MotionFilter) Position() [3]float64 {
	return [3]float64{mf.x.AtVec(0), mf.x.AtVec(1), mf.x.AtVec(2)}
}

// Velocity returns the current velocity estimate.
func (mf *MotionFilter) Velocity() [3]float64 {
	return [3]float64{mf.x.AtVec(3), mf.x.AtVec(4), mf.x.AtVec(5)}
}

// Size returns the filtered width and height.
func (mf *MotionFilter) Size() (w, h float64) {
	return mf.x.AtVec(6), mf.x.AtVec(7)
}

// PositionUncertainty returns the positional standard deviations from the
// covariance diagonal.
func (mf *MotionFilter) PositionUncertainty() [3]float64 {
	var u [3]float64
	for i := 0; i < 3; i++ {
		v := mf.p.At(i, i)
		if v < 0 {
			v = 0
		}
		u[i] = math.Sqrt(v)
	}
	return u
}
