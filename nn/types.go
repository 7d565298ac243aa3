package nn

// ActivationType defines the activation function applied by a layer
type ActivationType int

const (
	ActivationNone      ActivationType = 0 // identity
	ActivationReLU      ActivationType = 1 // max(0, v)
	ActivationLeakyReLU ActivationType = 2 // v if v >= 0, else v * 0.1
	ActivationSigmoid   ActivationType = 3 // 1 / (1 + exp(-v))
	ActivationTanh      ActivationType = 4 // tanh(v)
)

// LayerType defines the type of layer in a stack
type LayerType int

const (
	LayerDense     LayerType = 0 // Affine transform over flattened features
	LayerConv1D    LayerType = 1 // Temporal convolution over the time axis
	LayerBatchNorm LayerType = 2 // Per-channel batch normalization
)

// LayerConfig holds the parameters of a single layer in a stack.
// Only the fields for its Type are populated.
type LayerConfig struct {
	Type       LayerType
	Activation ActivationType

	// Dense parameters
	InputSize  int
	OutputSize int
	Weights    []float32 // [InputSize * OutputSize], input-major
	Bias       []float32 // [OutputSize] for dense, [Filters] for conv

	// Conv1D parameters
	Conv1DInChannels int
	Conv1DFilters    int
	Conv1DKernelSize int
	Conv1DStride     int
	Conv1DPadding    int
	SeqLen           int       // input sequence length
	Kernel           []float32 // [Filters * InChannels * KernelSize]

	// BatchNorm parameters. NormInner is the number of trailing positions
	// each channel spans: the sequence length after a convolution, 1 after
	// an affine transform.
	NormSize    int
	NormInner   int
	Gamma       []float32
	Beta        []float32
	RunningMean []float32
	RunningVar  []float32
	Momentum    float32
	Epsilon     float32
}

// TempConv is the composite architecture: a temporal convolution stack, a
// fully-connected stack and a decoder stack, with an optional additive
// position encoding on the raw input.
//
// All layer parameters are owned exclusively by one model instance. During
// inference they are read-only, so concurrent Forward calls are safe as long
// as Training is false; Training-mode forward updates running statistics and
// must have a single writer.
type TempConv struct {
	InputSize int
	SeqLen    int
	Name      string

	// Training selects batch statistics (and running-stat accumulation) in
	// normalization layers. Inference uses the frozen running statistics.
	Training bool

	Conv    []LayerConfig
	FC      []LayerConfig
	Decoder []LayerConfig

	positionEnc *PositionTable

	// cfg is a copy of the construction parameters, kept for persistence.
	cfg Config

	gpuSeq   *gpuSequence
	gpuBatch int
}

// OutputSize returns the width of the decoder's final transform.
func (m *TempConv) OutputSize() int {
	for i := len(m.Decoder) - 1; i >= 0; i-- {
		if m.Decoder[i].Type == LayerDense {
			return m.Decoder[i].OutputSize
		}
	}
	return 0
}

// PositionEncodingEnabled reports whether the model adds a position
// encoding to its input.
func (m *TempConv) PositionEncodingEnabled() bool {
	return m.positionEnc != nil
}

// VisitParameters calls fn for every trainable parameter slice in forward
// order. The position encoding table and running statistics are derived or
// accumulated state, not trainable parameters, and are never visited.
func (m *TempConv) VisitParameters(fn func(name string, data []float32)) {
	visit := func(prefix string, layers []LayerConfig) {
		for i := range layers {
			l := &layers[i]
			switch l.Type {
			case LayerConv1D:
				fn(layerName(prefix, i, "kernel"), l.Kernel)
				fn(layerName(prefix, i, "bias"), l.Bias)
			case LayerDense:
				fn(layerName(prefix, i, "weights"), l.Weights)
				fn(layerName(prefix, i, "bias"), l.Bias)
			case LayerBatchNorm:
				fn(layerName(prefix, i, "gamma"), l.Gamma)
				fn(layerName(prefix, i, "beta"), l.Beta)
			}
		}
	}
	visit("conv", m.Conv)
	visit("fc", m.FC)
	visit("decoder", m.Decoder)
}
