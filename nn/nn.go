// Package nn implements TempCNN, a fixed-topology temporal convolutional
// network for classifying or regressing fixed-length multivariate time
// series (one feature vector per time step, e.g. satellite observations).
//
// The architecture is three stacks run in order:
//   - a temporal convolution stack (kernel 3, padding 1, length-preserving),
//     each convolution followed by BatchNorm + ReLU
//   - a fully-connected stack over the flattened features, each affine
//     transform followed by BatchNorm + ReLU
//   - a decoder stack where every affine transform but the last is followed
//     by BatchNorm + ReLU; the last is left raw so its output can be read as
//     logits or regression values
//
// An optional sinusoid position encoding is added to the raw input before
// the convolution stack. The table is a frozen lookup, never touched by
// parameter updates.
//
// Example usage:
//
//	model, err := nn.NewTempConv(nn.Config{
//		InputSize: 4,
//		NKer:      []int{8, 16},
//		SeqLen:    5,
//		NFC:       []int{32},
//		MLP4:      []int{32, 10, 3},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	input := nn.NewTensor[float32](2, 5, 4)
//	output, err := model.Forward(input) // shape (2, 3)
//
//	// Optional GPU inference path
//	if err := model.InitGPU(2); err == nil {
//		defer model.ReleaseGPU()
//		outputGPU, _ := model.ForwardGPU(input)
//		_ = outputGPU
//	}
package nn
