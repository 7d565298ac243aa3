package nn

import (
	"math"
	"math/rand"
)

// Conv1DForward performs 1D convolution over the time axis for any numeric
// type.
// Input layout: [batch][inChannels][seqLen] (flattened)
// Output layout: [batch][filters][outLen] (flattened)
func Conv1DForward[T Numeric](
	input, kernel, bias *Tensor[T],
	seqLen, inChannels, kernelSize, stride, padding, filters, batchSize int,
	activation ActivationType,
) *Tensor[T] {
	outLen := (seqLen+2*padding-kernelSize)/stride + 1
	output := NewTensor[T](batchSize * filters * outLen)

	biasLen := 0
	if bias != nil {
		biasLen = len(bias.Data)
	}

	for b := 0; b < batchSize; b++ {
		for f := 0; f < filters; f++ {
			var sum0 T
			if f < biasLen {
				sum0 = bias.Data[f]
			}

			for o := 0; o < outLen; o++ {
				sum := sum0

				for ic := 0; ic < inChannels; ic++ {
					for k := 0; k < kernelSize; k++ {
						inPos := o*stride + k - padding
						if inPos < 0 || inPos >= seqLen {
							continue
						}
						inputIdx := b*inChannels*seqLen + ic*seqLen + inPos
						kernelIdx := f*inChannels*kernelSize + ic*kernelSize + k
						sum += input.Data[inputIdx] * kernel.Data[kernelIdx]
					}
				}

				output.Data[b*filters*outLen+f*outLen+o] = Activate(sum, activation)
			}
		}
	}

	return output
}

// InitConv1DLayer initializes a temporal convolution layer with He-initialized
// weights. The stacks built here always use kernel size 3, stride 1 and
// padding 1 so the output sequence length equals the input sequence length.
func InitConv1DLayer(
	inChannels, filters, kernelSize, stride, padding, seqLen int,
	activation ActivationType,
) LayerConfig {
	kernelTotal := filters * inChannels * kernelSize
	kernel := make([]float32, kernelTotal)
	stddev := float32(math.Sqrt(2.0 / float64(inChannels*kernelSize)))
	for i := range kernel {
		kernel[i] = float32(rand.NormFloat64()) * stddev
	}

	bias := make([]float32, filters)

	return LayerConfig{
		Type:             LayerConv1D,
		Activation:       activation,
		Conv1DInChannels: inChannels,
		Conv1DFilters:    filters,
		Conv1DKernelSize: kernelSize,
		Conv1DStride:     stride,
		Conv1DPadding:    padding,
		SeqLen:           seqLen,
		Kernel:           kernel,
		Bias:             bias,
	}
}

// conv1dForwardCPU performs 1D convolution on CPU for one layer config
func conv1dForwardCPU(input []float32, config *LayerConfig, batchSize int) []float32 {
	inputT := NewTensorFromSlice(input, len(input))
	kernelT := NewTensorFromSlice(config.Kernel, len(config.Kernel))
	biasT := NewTensorFromSlice(config.Bias, len(config.Bias))

	output := Conv1DForward(
		inputT, kernelT, biasT,
		config.SeqLen, config.Conv1DInChannels,
		config.Conv1DKernelSize, config.Conv1DStride, config.Conv1DPadding,
		config.Conv1DFilters, batchSize, config.Activation,
	)
	return output.Data
}
