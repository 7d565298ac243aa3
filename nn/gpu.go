package nn

import (
	"fmt"

	"github.com/openfluke/tempconv/gpu"
)

type gpuSequence = gpu.Sequence

// InitGPU compiles the model's stacks into a WebGPU compute sequence for
// inference at a fixed batch size. Convolutions and affine transforms run as
// generated WGSL pipelines; each normalization is folded into a per-channel
// scale-and-shift using its frozen running statistics, so the sequence
// mirrors inference-mode Forward exactly. Position encoding and the axis
// reorder stay on the CPU.
//
// Placement is the caller's decision: a model never touches the GPU unless
// InitGPU is called, and ReleaseGPU returns it to CPU-only operation.
func (m *TempConv) InitGPU(batchSize int) error {
	if m.gpuSeq != nil {
		return fmt.Errorf("%w: GPU already initialized", ErrConfig)
	}
	if batchSize < 1 {
		return fmt.Errorf("%w: GPU batch size must be at least 1, got %d", ErrConfig, batchSize)
	}
	if m.Training {
		return fmt.Errorf("%w: GPU path is inference-only; unset Training first", ErrConfig)
	}

	var layers []gpu.ForwardLayer
	for _, stack := range [][]LayerConfig{m.Conv, m.FC, m.Decoder} {
		for i := range stack {
			layer, err := gpuLayerFor(&stack[i])
			if err != nil {
				return err
			}
			layers = append(layers, layer)
		}
	}

	seq := gpu.NewSequence(layers...)
	if err := seq.Build(batchSize); err != nil {
		return err
	}

	m.gpuSeq = seq
	m.gpuBatch = batchSize
	return nil
}

// ForwardGPU runs the forward pass on the GPU sequence built by InitGPU.
// Input shape and semantics match Forward; the batch size must equal the one
// the sequence was built for.
func (m *TempConv) ForwardGPU(input *Tensor[float32]) (*Tensor[float32], error) {
	if m.gpuSeq == nil {
		return nil, fmt.Errorf("%w: GPU not initialized", ErrConfig)
	}

	batchSize, seqLen, err := m.checkInputShape(input)
	if err != nil {
		return nil, err
	}
	if batchSize != m.gpuBatch {
		return nil, fmt.Errorf("%w: batch size %d does not match GPU sequence batch size %d", ErrShape, batchSize, m.gpuBatch)
	}

	data := make([]float32, len(input.Data))
	copy(data, input.Data)

	if m.positionEnc != nil {
		for t := 0; t < seqLen; t++ {
			row, lookupErr := m.positionEnc.Lookup(t + 1)
			if lookupErr != nil {
				return nil, lookupErr
			}
			for b := 0; b < batchSize; b++ {
				base := b*seqLen*m.InputSize + t*m.InputSize
				for c := 0; c < m.InputSize; c++ {
					data[base+c] += row[c]
				}
			}
		}
	}

	data = permuteToChannelsFirst(data, batchSize, seqLen, m.InputSize)

	out, err := m.gpuSeq.Forward(data)
	if err != nil {
		return nil, err
	}

	return NewTensorFromSlice(out, batchSize, len(out)/batchSize), nil
}

// ReleaseGPU frees all GPU resources held by the model
func (m *TempConv) ReleaseGPU() {
	if m.gpuSeq != nil {
		m.gpuSeq.Cleanup()
		m.gpuSeq = nil
		m.gpuBatch = 0
	}
}

func gpuLayerFor(config *LayerConfig) (gpu.ForwardLayer, error) {
	switch config.Type {
	case LayerConv1D:
		return &gpu.Conv1DLayer{Spec: gpu.Conv1DSpec{
			InChannels:  config.Conv1DInChannels,
			OutChannels: config.Conv1DFilters,
			KernelSize:  config.Conv1DKernelSize,
			Stride:      config.Conv1DStride,
			Padding:     config.Conv1DPadding,
			SeqLen:      config.SeqLen,
			Activation:  gpuActivation(config.Activation),
			Weights:     config.Kernel,
			Bias:        config.Bias,
		}}, nil

	case LayerDense:
		return &gpu.DenseLayer{Spec: gpu.DenseSpec{
			InputSize:  config.InputSize,
			OutputSize: config.OutputSize,
			Activation: gpuActivation(config.Activation),
			Weights:    config.Weights,
			Biases:     config.Bias,
		}}, nil

	case LayerBatchNorm:
		scale, shift := foldBatchNorm(config)
		return &gpu.AffineLayer{Spec: gpu.AffineSpec{
			Channels:   config.NormSize,
			Inner:      config.NormInner,
			Activation: gpuActivation(config.Activation),
			Scale:      scale,
			Shift:      shift,
		}}, nil

	default:
		return nil, fmt.Errorf("%w: no GPU kernel for layer type %d", ErrConfig, config.Type)
	}
}

func gpuActivation(a ActivationType) int {
	switch a {
	case ActivationReLU:
		return gpu.ActReLU
	case ActivationLeakyReLU:
		return gpu.ActLeakyReLU
	case ActivationSigmoid:
		return gpu.ActSigmoid
	case ActivationTanh:
		return gpu.ActTanh
	default:
		return gpu.ActNone
	}
}
