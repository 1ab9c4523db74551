package tracking

import (
	"math"
	"testing"
)

func TestMotionFilterInitialState(t *testing.T) {
	mf := NewMotionFilter([5]float64{1, 2, 3, 4, 5})

	pos := mf.Position()
	if pos != [3]float64{1, 2, 3} {
		t.Errorf("initial position = %v, want [1 2 3]", pos)
	}

	vel := mf.Velocity()
	if vel != [3]float64{0, 0, 0} {
		t.Errorf("initial velocity = %v, want zero", vel)
	}

	w, h := mf.Size()
	if w != 4 || h != 5 {
		t.Errorf("initial size = (%v, %v), want (4, 5)", w, h)
	}
}

func TestMotionFilterPredictConstantVelocity(t *testing.T) {
	mf := NewMotionFilter([5]float64{0, 0, 0, 1, 1})

	// Feed a steady 1 m/s motion along X so the filter learns the velocity.
	for i := 1; i <= 20; i++ {
		mf.Predict(1.0, 1.0)
		if err := mf.Update([5]float64{float64(i), 0, 0, 1, 1}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	vel := mf.Velocity()
	if math.Abs(vel[0]-1.0) > 0.1 {
		t.Errorf("learned vx = %v, want ~1.0", vel[0])
	}

	pos, _ := mf.Predict(1.0, 1.0)
	if math.Abs(pos[0]-21.0) > 0.5 {
		t.Errorf("predicted x = %v, want ~21.0", pos[0])
	}
}

func TestMotionFilterUpdateShrinksUncertainty(t *testing.T) {
	mf := NewMotionFilter([5]float64{0, 0, 0, 1, 1})
	before := mf.PositionUncertainty()

	mf.Predict(0.1, 1.0)
	if err := mf.Update([5]float64{0, 0, 0, 1, 1}); err != nil {
		t.Fatalf("update: %v", err)
	}

	after := mf.PositionUncertainty()
	for i := 0; i < 3; i++ {
		if after[i] >= before[i] {
			t.Errorf("uncertainty[%d] = %v after update, want < %v", i, after[i], before[i])
		}
	}
}

func TestMotionFilterLowConfidenceInflatesNoise(t *testing.T) {
	low := NewMotionFilter([5]float64{0, 0, 0, 1, 1})
	high := NewMotionFilter([5]float64{0, 0, 0, 1, 1})

	_, lowUnc := low.Predict(1.0, 0.1)
	_, highUnc := high.Predict(1.0, 1.0)

	if lowUnc[0] <= highUnc[0] {
		t.Errorf("low-confidence uncertainty %v not above high-confidence %v", lowUnc[0], highUnc[0])
	}
}

func TestMotionFilterZeroConfidenceClamped(t *testing.T) {
	mf := NewMotionFilter([5]float64{0, 0, 0, 1, 1})

	pos, unc := mf.Predict(1.0, 0)
	for i := 0; i < 3; i++ {
		if math.IsNaN(pos[i]) || math.IsInf(pos[i], 0) {
			t.Fatalf("position[%d] = %v with zero confidence", i, pos[i])
		}
		if math.IsNaN(unc[i]) || math.IsInf(unc[i], 0) {
			t.Fatalf("uncertainty[%d] = %v with zero confidence", i, unc[i])
		}
	}
}
