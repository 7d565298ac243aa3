package nn

import "fmt"

// Forward runs the model on a batch of shape (B, SeqLen, InputSize) and
// returns a batch of shape (B, OutputSize()).
//
// The data path is: optional additive position encoding, axis reorder so
// time trails (channels-first), convolution stack, flatten, fully-connected
// stack, decoder stack. In inference mode the call is deterministic and
// mutates no model state; in Training mode the normalization layers update
// their running statistics.
func (m *TempConv) Forward(input *Tensor[float32]) (*Tensor[float32], error) {
	batchSize, seqLen, err := m.checkInputShape(input)
	if err != nil {
		return nil, err
	}

	data := make([]float32, len(input.Data))
	copy(data, input.Data)

	if m.positionEnc != nil {
		// Time step t (1-indexed) looks up table row t. Row 0 is never read
		// when the table was built from a position range, so covering steps
		// 1..seqLen needs a table of seqLen+1 rows.
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

	// (B, L, C) -> (B, C, L): the convolution runs over the time axis with
	// channels leading.
	data = permuteToChannelsFirst(data, batchSize, seqLen, m.InputSize)

	data, err = runStack(data, m.Conv, batchSize, m.Training)
	if err != nil {
		return nil, err
	}

	// Channel and time axes collapse into one feature axis; the buffer is
	// already contiguous as [B][C*L], so the flatten is free.

	data, err = runStack(data, m.FC, batchSize, m.Training)
	if err != nil {
		return nil, err
	}

	data, err = runStack(data, m.Decoder, batchSize, m.Training)
	if err != nil {
		return nil, err
	}

	return NewTensorFromSlice(data, batchSize, len(data)/batchSize), nil
}

func (m *TempConv) checkInputShape(input *Tensor[float32]) (batchSize, seqLen int, err error) {
	if len(input.Shape) != 3 {
		return 0, 0, fmt.Errorf("%w: input must have 3 axes (batch, sequence, channels), got shape %v", ErrShape, input.Shape)
	}
	batchSize, seqLen = input.Shape[0], input.Shape[1]
	if batchSize < 1 {
		return 0, 0, fmt.Errorf("%w: batch size must be at least 1, got %d", ErrShape, batchSize)
	}
	if input.Shape[2] != m.InputSize {
		return 0, 0, fmt.Errorf("%w: input has %d channels, model expects %d", ErrShape, input.Shape[2], m.InputSize)
	}
	if m.positionEnc != nil && seqLen != m.SeqLen {
		return 0, 0, fmt.Errorf("%w: sequence length %d does not match model length %d with position encoding enabled", ErrShape, seqLen, m.SeqLen)
	}
	return batchSize, seqLen, nil
}

// runStack applies the layers of one stack in order
func runStack(data []float32, layers []LayerConfig, batchSize int, training bool) ([]float32, error) {
	for i := range layers {
		config := &layers[i]

		switch config.Type {
		case LayerConv1D:
			data = conv1dForwardCPU(data, config, batchSize)

		case LayerDense:
			data = denseForwardCPU(data, config, batchSize)

		case LayerBatchNorm:
			out, err := batchNormForwardCPU(data, config, batchSize, training)
			if err != nil {
				return nil, err
			}
			data = out

		default:
			return nil, fmt.Errorf("%w: unsupported layer type %d", ErrConfig, config.Type)
		}
	}
	return data, nil
}

// permuteToChannelsFirst reorders (B, L, C) to (B, C, L)
func permuteToChannelsFirst(data []float32, batchSize, seqLen, channels int) []float32 {
	out := make([]float32, len(data))
	for b := 0; b < batchSize; b++ {
		for t := 0; t < seqLen; t++ {
			for c := 0; c < channels; c++ {
				out[b*channels*seqLen+c*seqLen+t] = data[b*seqLen*channels+t*channels+c]
			}
		}
	}
	return out
}
