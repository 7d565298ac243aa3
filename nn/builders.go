package nn

import "fmt"

// PrependWidth returns a new width list with width at position 0. The
// argument is never mutated; callers keep their original list for name
// construction.
func PrependWidth(width int, widths []int) []int {
	out := make([]int, 0, len(widths)+1)
	out = append(out, width)
	return append(out, widths...)
}

func checkWidths(context string, widths []int) error {
	for _, w := range widths {
		if w <= 0 {
			return fmt.Errorf("%w: %s widths must be positive, got %v", ErrConfig, context, widths)
		}
	}
	return nil
}

// BuildDecoder assembles the decoder stack from a width list of length >= 2:
// len(widths)-1 affine transforms where every transform except the last is
// followed by BatchNorm + ReLU. The final transform is left raw so its
// output can be read as logits or regression values.
func BuildDecoder(widths []int) ([]LayerConfig, error) {
	if len(widths) < 2 {
		return nil, fmt.Errorf("%w: decoder needs at least 2 widths, got %d", ErrConfig, len(widths))
	}
	if err := checkWidths("decoder", widths); err != nil {
		return nil, err
	}

	var layers []LayerConfig
	for i := 0; i < len(widths)-1; i++ {
		layers = append(layers, InitDenseLayer(widths[i], widths[i+1], ActivationNone))
		if i < len(widths)-2 {
			layers = append(layers, InitBatchNormLayer(widths[i+1], 1, ActivationReLU))
		}
	}
	return layers, nil
}

// BuildConvStack assembles the temporal convolution stack: for each adjacent
// width pair one length-preserving convolution (kernel 3, stride 1,
// padding 1) followed by BatchNorm + ReLU. Unlike the decoder there is no
// raw-last exception; every convolution gets the normalization and the
// nonlinearity.
func BuildConvStack(widths []int, seqLen int) ([]LayerConfig, error) {
	if err := checkWidths("convolution", widths); err != nil {
		return nil, err
	}

	var layers []LayerConfig
	for i := 0; i < len(widths)-1; i++ {
		layers = append(layers,
			InitConv1DLayer(widths[i], widths[i+1], 3, 1, 1, seqLen, ActivationNone),
			InitBatchNormLayer(widths[i+1], seqLen, ActivationReLU),
		)
	}
	return layers, nil
}

// BuildFCStack assembles the fully-connected stack with the same
// always-normalize policy as the convolution stack: every affine transform,
// including the last, is followed by BatchNorm + ReLU. A width list of
// length 1 (the prepended input width alone) yields zero transforms.
func BuildFCStack(widths []int) ([]LayerConfig, error) {
	if err := checkWidths("fully-connected", widths); err != nil {
		return nil, err
	}

	var layers []LayerConfig
	for i := 0; i < len(widths)-1; i++ {
		layers = append(layers,
			InitDenseLayer(widths[i], widths[i+1], ActivationNone),
			InitBatchNormLayer(widths[i+1], 1, ActivationReLU),
		)
	}
	return layers, nil
}
