package nn

import (
	"errors"
	"math"
	"testing"
)

// TestBatchNormInferenceIdentity verifies default statistics (mean 0, var 1)
// pass values through nearly unchanged in inference mode
func TestBatchNormInferenceIdentity(t *testing.T) {
	config := InitBatchNormLayer(2, 1, ActivationNone)
	input := []float32{0.5, -1.0, 2.0, 0.25}

	out, err := batchNormForwardCPU(input, &config, 2, false)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	// Off only by the epsilon in the denominator
	if MaxAbsDiff(out, input) > 1e-4 {
		t.Errorf("expected near-identity, input %v output %v", input, out)
	}
}

// TestBatchNormTrainingNormalizes verifies training mode produces zero-mean
// unit-variance output per channel
func TestBatchNormTrainingNormalizes(t *testing.T) {
	config := InitBatchNormLayer(1, 1, ActivationNone)
	input := []float32{1, 2, 3, 4} // batch of 4, single channel

	out, err := batchNormForwardCPU(input, &config, 4, true)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	var mean float64
	for _, v := range out {
		mean += float64(v)
	}
	mean /= float64(len(out))
	if math.Abs(mean) > 1e-5 {
		t.Errorf("expected zero mean, got %f", mean)
	}

	var variance float64
	for _, v := range out {
		variance += (float64(v) - mean) * (float64(v) - mean)
	}
	variance /= float64(len(out))
	if math.Abs(variance-1.0) > 1e-2 {
		t.Errorf("expected unit variance, got %f", variance)
	}
}

// TestBatchNormRunningStatUpdate verifies training mode folds the batch
// statistics into the running statistics with momentum 0.1
func TestBatchNormRunningStatUpdate(t *testing.T) {
	config := InitBatchNormLayer(1, 1, ActivationNone)
	input := []float32{1, 2, 3, 4}

	if _, err := batchNormForwardCPU(input, &config, 4, true); err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	// Batch mean 2.5, population variance 1.25, unbiased variance 5/3
	wantMean := float32(0.9*0 + 0.1*2.5)
	wantVar := float32(0.9*1 + 0.1*(5.0/3.0))

	if math.Abs(float64(config.RunningMean[0]-wantMean)) > 1e-5 {
		t.Errorf("running mean: expected %f, got %f", wantMean, config.RunningMean[0])
	}
	if math.Abs(float64(config.RunningVar[0]-wantVar)) > 1e-5 {
		t.Errorf("running var: expected %f, got %f", wantVar, config.RunningVar[0])
	}
}

// TestBatchNormInferenceLeavesStats verifies inference mode never writes the
// running statistics
func TestBatchNormInferenceLeavesStats(t *testing.T) {
	config := InitBatchNormLayer(1, 1, ActivationNone)
	input := []float32{5, 6, 7, 8}

	if _, err := batchNormForwardCPU(input, &config, 4, false); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	if config.RunningMean[0] != 0 || config.RunningVar[0] != 1 {
		t.Errorf("inference modified running statistics: mean %f var %f",
			config.RunningMean[0], config.RunningVar[0])
	}
}

// TestBatchNormTrainingSingleValue verifies the single-value-per-channel
// training case is rejected
func TestBatchNormTrainingSingleValue(t *testing.T) {
	config := InitBatchNormLayer(2, 1, ActivationNone)
	input := []float32{1, 2}

	if _, err := batchNormForwardCPU(input, &config, 1, true); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for batch of 1 in training mode, got %v", err)
	}
}

// TestBatchNormSequenceChannels verifies channels spanning the time axis
// normalize over batch and time together
func TestBatchNormSequenceChannels(t *testing.T) {
	config := InitBatchNormLayer(2, 3, ActivationNone)
	// [batch=1][channel=2][inner=3]: channel 0 holds {0,2,4}, channel 1 {10,10,10}
	input := []float32{0, 2, 4, 10, 10, 10}

	// Constant channel in training mode: variance 0, output all zero
	out, err := batchNormForwardCPU(input, &config, 1, true)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	for i := 3; i < 6; i++ {
		if math.Abs(float64(out[i])) > 1e-4 {
			t.Errorf("constant channel should normalize to zero, position %d is %f", i, out[i])
		}
	}
	if math.Abs(float64(out[1])) > 1e-4 {
		t.Errorf("channel mean element should normalize to zero, got %f", out[1])
	}
}

// TestFoldBatchNormMatchesInference verifies the folded scale-and-shift form
// reproduces the inference forward exactly
func TestFoldBatchNormMatchesInference(t *testing.T) {
	config := InitBatchNormLayer(2, 1, ActivationNone)
	config.Gamma = []float32{1.5, 0.5}
	config.Beta = []float32{0.1, -0.2}
	config.RunningMean = []float32{0.3, -1.0}
	config.RunningVar = []float32{2.0, 0.25}

	input := []float32{1.0, -0.5, 3.0, 0.75}
	want, err := batchNormForwardCPU(input, &config, 2, false)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	scale, shift := foldBatchNorm(&config)
	got := make([]float32, len(input))
	for i, v := range input {
		c := i % 2
		got[i] = scale[c]*v + shift[c]
	}

	if MaxAbsDiff(got, want) > 1e-5 {
		t.Errorf("folded form diverges: got %v, want %v", got, want)
	}
}
