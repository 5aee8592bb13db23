package biometrics

import "testing"

func TestNormalHeartbeatPasses(t *testing.T) {
	v := NewValidator()
	r := v.Validate("device1", 72, 0.1, 36.7)
	if !r.IsValid {
		t.Fatalf("expected valid result, got %+v", r)
	}
	if r.Confidence < 0.9 {
		t.Fatalf("expected high confidence, got %f", r.Confidence)
	}
}

func TestExtremeTemperatureReducesConfidence(t *testing.T) {
	v := NewValidator()
	r := v.Validate("device1", 72, 0.1, 45.0)
	if r.IsValid && r.Confidence >= 0.5 {
		t.Fatalf("expected reduced confidence for extreme temperature, got %+v", r)
	}
}

func TestHeartRateOutOfBoundsRejected(t *testing.T) {
	v := NewValidator()
	r := v.Validate("device1", 250, 0.1, 36.7)
	if r.IsValid {
		t.Fatal("expected heart rate outside physiological bounds to be rejected")
	}
	if r.Confidence != 0 {
		t.Fatalf("expected zero confidence for out-of-bounds HR, got %f", r.Confidence)
	}
}

func TestConstantHRDetectedAsSynthetic(t *testing.T) {
	v := NewValidator()
	for i := 0; i < 15; i++ {
		v.Validate("device1", 72, 0.1, 36.7)
	}
	r := v.Validate("device1", 72, 0.1, 36.7)
	if r.Confidence >= 0.5 {
		t.Fatalf("constant HR should reduce confidence, got %f", r.Confidence)
	}
}

func TestNaturalHRVPasses(t *testing.T) {
	v := NewValidator()
	hrs := []uint16{72, 74, 71, 75, 73, 70, 76, 72, 74, 71, 73, 75, 72, 74, 70}
	motions := []float64{0.08, 0.12, 0.09, 0.15, 0.11, 0.07, 0.13, 0.10, 0.14, 0.08, 0.12, 0.09, 0.11, 0.13, 0.10}
	for i := range hrs {
		v.Validate("device1", hrs[i], motions[i], 36.7)
	}
	r := v.Validate("device1", 73, 0.11, 36.7)
	if !r.IsValid {
		t.Fatalf("expected natural HRV to pass, got %+v", r)
	}
	if r.Confidence < 0.7 {
		t.Fatalf("expected high confidence for natural HRV, got %f", r.Confidence)
	}
}

func TestEntropyExtraction(t *testing.T) {
	v := NewValidator()
	r1 := v.Validate("device1", 72, 0.1, 36.7)
	r2 := v.Validate("device1", 73, 0.15, 36.8)
	if len(r1.EntropyBits) != 32 || len(r2.EntropyBits) != 32 {
		t.Fatalf("expected 32-byte entropy, got %d and %d", len(r1.EntropyBits), len(r2.EntropyBits))
	}
	if string(r1.EntropyBits) == string(r2.EntropyBits) {
		t.Fatal("different inputs should produce different entropy")
	}
}

func TestHRMotionMismatch(t *testing.T) {
	v := NewValidator()
	for i := 0; i < 15; i++ {
		v.Validate("device1", 160, 0.01, 36.7)
	}
	r := v.Validate("device1", 165, 0.01, 36.7)
	if r.Confidence >= 0.7 {
		t.Fatalf("high HR with no motion should reduce confidence, got %f", r.Confidence)
	}
}

func TestCleanupRemovesInactiveDevices(t *testing.T) {
	v := NewValidator()
	v.Validate("device1", 72, 0.1, 36.7)
	v.Validate("device2", 72, 0.1, 36.7)
	v.Cleanup([]string{"device1"})
	if v.devices.Contains("device2") {
		t.Fatal("expected device2 history to be removed")
	}
	if !v.devices.Contains("device1") {
		t.Fatal("expected device1 history to remain")
	}
}

func TestAggregateEntropyLength(t *testing.T) {
	v := NewValidator()
	v.Validate("device1", 72, 0.1, 36.7)
	v.Validate("device2", 80, 0.2, 36.9)
	agg := v.AggregateEntropy()
	if len(agg) != 32 {
		t.Fatalf("expected 32-byte aggregate entropy, got %d", len(agg))
	}
}
