package nn

import (
	"math"
	"math/rand"
)

// DenseForward performs a fully-connected forward pass for any numeric type.
// input: [batchSize * inputSize], weights: [inputSize * outputSize]
// output: [batchSize * outputSize]
func DenseForward[T Numeric](
	input, weights, bias *Tensor[T],
	inputSize, outputSize, batchSize int,
	activation ActivationType,
) *Tensor[T] {
	output := NewTensor[T](batchSize * outputSize)

	for b := 0; b < batchSize; b++ {
		for o := 0; o < outputSize; o++ {
			var sum T
			if o < len(bias.Data) {
				sum = bias.Data[o]
			}
			for i := 0; i < inputSize; i++ {
				sum += input.Data[b*inputSize+i] * weights.Data[i*outputSize+o]
			}
			output.Data[b*outputSize+o] = Activate(sum, activation)
		}
	}

	return output
}

// InitDenseLayer initializes a dense (fully-connected) layer
func InitDenseLayer(inputSize, outputSize int, activation ActivationType) LayerConfig {
	// He initialization for weights
	stddev := float32(math.Sqrt(2.0 / float64(inputSize)))

	weights := make([]float32, inputSize*outputSize)
	for i := range weights {
		weights[i] = float32(rand.NormFloat64()) * stddev
	}

	// Biases initialized to zero
	bias := make([]float32, outputSize)

	return LayerConfig{
		Type:       LayerDense,
		Activation: activation,
		InputSize:  inputSize,
		OutputSize: outputSize,
		Weights:    weights,
		Bias:       bias,
	}
}

// denseForwardCPU performs forward pass for a dense layer config
func denseForwardCPU(input []float32, config *LayerConfig, batchSize int) []float32 {
	inputT := NewTensorFromSlice(input, len(input))
	weightsT := NewTensorFromSlice(config.Weights, len(config.Weights))
	biasT := NewTensorFromSlice(config.Bias, len(config.Bias))

	output := DenseForward(inputT, weightsT, biasT, config.InputSize, config.OutputSize, batchSize, config.Activation)
	return output.Data
}
