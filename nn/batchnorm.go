package nn

import (
	"fmt"
	"math"
)

// InitBatchNormLayer initializes a per-channel batch normalization layer.
// size is the channel count; inner is the number of trailing positions each
// channel spans (the sequence length after a convolution, 1 after an affine
// transform). Scale starts at 1, shift at 0, running statistics at the
// standard-normal identity.
func InitBatchNormLayer(size, inner int, activation ActivationType) LayerConfig {
	gamma := make([]float32, size)
	beta := make([]float32, size)
	runningMean := make([]float32, size)
	runningVar := make([]float32, size)
	for i := 0; i < size; i++ {
		gamma[i] = 1
		runningVar[i] = 1
	}

	return LayerConfig{
		Type:        LayerBatchNorm,
		Activation:  activation,
		NormSize:    size,
		NormInner:   inner,
		Gamma:       gamma,
		Beta:        beta,
		RunningMean: runningMean,
		RunningVar:  runningVar,
		Momentum:    0.1,
		Epsilon:     1e-5,
	}
}

// batchNormForwardCPU normalizes each channel over the batch (and, for
// convolution outputs, the time axis).
//
// Input layout: [batch][NormSize][NormInner] flattened.
//
// In training mode the statistics come from the current batch and the
// running statistics are updated in place (momentum-weighted, unbiased
// variance), which requires more than one value per channel. In inference
// mode the frozen running statistics are used and nothing is written.
func batchNormForwardCPU(input []float32, config *LayerConfig, batchSize int, training bool) ([]float32, error) {
	channels := config.NormSize
	inner := config.NormInner
	if inner <= 0 {
		inner = 1
	}
	epsilon := float64(config.Epsilon)
	if epsilon == 0 {
		epsilon = 1e-5
	}

	output := make([]float32, len(input))
	count := batchSize * inner

	for c := 0; c < channels; c++ {
		var mean, variance float64

		if training {
			if count < 2 {
				return nil, fmt.Errorf("%w: batch normalization needs more than one value per channel in training mode, got %d", ErrShape, count)
			}

			var sum float64
			for b := 0; b < batchSize; b++ {
				base := b*channels*inner + c*inner
				for i := 0; i < inner; i++ {
					sum += float64(input[base+i])
				}
			}
			mean = sum / float64(count)

			for b := 0; b < batchSize; b++ {
				base := b*channels*inner + c*inner
				for i := 0; i < inner; i++ {
					diff := float64(input[base+i]) - mean
					variance += diff * diff
				}
			}
			variance /= float64(count)

			// Running statistics accumulate the unbiased variance.
			m := float64(config.Momentum)
			unbiased := variance * float64(count) / float64(count-1)
			config.RunningMean[c] = float32((1-m)*float64(config.RunningMean[c]) + m*mean)
			config.RunningVar[c] = float32((1-m)*float64(config.RunningVar[c]) + m*unbiased)
		} else {
			mean = float64(config.RunningMean[c])
			variance = float64(config.RunningVar[c])
		}

		std := math.Sqrt(variance + epsilon)
		gamma := float64(config.Gamma[c])
		beta := float64(config.Beta[c])

		for b := 0; b < batchSize; b++ {
			base := b*channels*inner + c*inner
			for i := 0; i < inner; i++ {
				normalized := (float64(input[base+i])-mean)/std*gamma + beta
				output[base+i] = activateCPU(float32(normalized), config.Activation)
			}
		}
	}

	return output, nil
}

// foldBatchNorm collapses an inference-mode batch normalization into a
// per-channel scale and shift: y = scale[c]*x + shift[c].
func foldBatchNorm(config *LayerConfig) (scale, shift []float32) {
	epsilon := float64(config.Epsilon)
	if epsilon == 0 {
		epsilon = 1e-5
	}

	scale = make([]float32, config.NormSize)
	shift = make([]float32, config.NormSize)
	for c := 0; c < config.NormSize; c++ {
		std := math.Sqrt(float64(config.RunningVar[c]) + epsilon)
		s := float64(config.Gamma[c]) / std
		scale[c] = float32(s)
		shift[c] = float32(float64(config.Beta[c]) - float64(config.RunningMean[c])*s)
	}
	return scale, shift
}
