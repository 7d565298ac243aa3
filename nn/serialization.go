package nn

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// ModelBundle is the on-disk representation of a saved model
type ModelBundle struct {
	Type    string            `json:"type"`
	Version int               `json:"version"`
	Config  ModelConfig       `json:"cfg"`
	Layers  []LayerDefinition `json:"layers"`
}

// ModelConfig captures the construction parameters so a load can rebuild the
// architecture before restoring weights. The position table itself is never
// stored; it is derived data and gets rebuilt from these parameters.
type ModelConfig struct {
	Name         string  `json:"name"`
	InputSize    int     `json:"input_size"`
	SeqLen       int     `json:"seq_len"`
	NKer         []int   `json:"nker"`
	NFC          []int   `json:"nfc,omitempty"`
	HasFC        bool    `json:"has_fc"`
	MLP4         []int   `json:"mlp4"`
	NumPositions int     `json:"num_positions,omitempty"`
	Positions    []int   `json:"positions,omitempty"`
	T            float64 `json:"t,omitempty"`
}

// LayerDefinition holds one layer's parameters, weights base64-encoded
type LayerDefinition struct {
	Type       string `json:"type"`
	Activation string `json:"activation"`

	InputSize  int `json:"input_size,omitempty"`
	OutputSize int `json:"output_size,omitempty"`

	InChannels int `json:"in_channels,omitempty"`
	Filters    int `json:"filters,omitempty"`
	KernelSize int `json:"kernel_size,omitempty"`
	Stride     int `json:"stride,omitempty"`
	Padding    int `json:"padding,omitempty"`
	SeqLen     int `json:"seq_len,omitempty"`

	NormSize  int `json:"norm_size,omitempty"`
	NormInner int `json:"norm_inner,omitempty"`

	Weights     string `json:"weights,omitempty"`
	Bias        string `json:"bias,omitempty"`
	Gamma       string `json:"gamma,omitempty"`
	Beta        string `json:"beta,omitempty"`
	RunningMean string `json:"running_mean,omitempty"`
	RunningVar  string `json:"running_var,omitempty"`
}

var layerTypeNames = map[LayerType]string{
	LayerDense:     "dense",
	LayerConv1D:    "conv1d",
	LayerBatchNorm: "batchnorm",
}

var activationNames = map[ActivationType]string{
	ActivationNone:      "none",
	ActivationReLU:      "relu",
	ActivationLeakyReLU: "leaky_relu",
	ActivationSigmoid:   "sigmoid",
	ActivationTanh:      "tanh",
}

// SaveModel writes the model's configuration and weights to path as JSON.
func SaveModel(m *TempConv, path string) error {
	bundle, err := bundleModel(m)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// LoadModel reads a model bundle from path, rebuilds the architecture and
// restores every weight, bias and running statistic.
func LoadModel(path string) (*TempConv, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var bundle ModelBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("unmarshal model: %w", err)
	}
	return restoreModel(&bundle)
}

func bundleModel(m *TempConv) (*ModelBundle, error) {
	cfg, err := configOf(m)
	if err != nil {
		return nil, err
	}

	bundle := &ModelBundle{
		Type:    "tempconv",
		Version: 1,
		Config:  cfg,
	}

	for _, stack := range [][]LayerConfig{m.Conv, m.FC, m.Decoder} {
		for i := range stack {
			bundle.Layers = append(bundle.Layers, defineLayer(&stack[i]))
		}
	}
	return bundle, nil
}

// configOf renders the model's construction parameters, which hold the
// caller-facing width lists (before any input width was prepended).
func configOf(m *TempConv) (ModelConfig, error) {
	return ModelConfig{
		Name:         m.Name,
		InputSize:    m.cfg.InputSize,
		SeqLen:       m.cfg.SeqLen,
		NKer:         m.cfg.NKer,
		NFC:          m.cfg.NFC,
		HasFC:        m.cfg.NFC != nil,
		MLP4:         m.cfg.MLP4,
		NumPositions: m.cfg.NumPositions,
		Positions:    m.cfg.Positions,
		T:            m.cfg.T,
	}, nil
}

func defineLayer(l *LayerConfig) LayerDefinition {
	def := LayerDefinition{
		Type:       layerTypeNames[l.Type],
		Activation: activationNames[l.Activation],
	}

	switch l.Type {
	case LayerDense:
		def.InputSize = l.InputSize
		def.OutputSize = l.OutputSize
		def.Weights = encodeFloats(l.Weights)
		def.Bias = encodeFloats(l.Bias)
	case LayerConv1D:
		def.InChannels = l.Conv1DInChannels
		def.Filters = l.Conv1DFilters
		def.KernelSize = l.Conv1DKernelSize
		def.Stride = l.Conv1DStride
		def.Padding = l.Conv1DPadding
		def.SeqLen = l.SeqLen
		def.Weights = encodeFloats(l.Kernel)
		def.Bias = encodeFloats(l.Bias)
	case LayerBatchNorm:
		def.NormSize = l.NormSize
		def.NormInner = l.NormInner
		def.Gamma = encodeFloats(l.Gamma)
		def.Beta = encodeFloats(l.Beta)
		def.RunningMean = encodeFloats(l.RunningMean)
		def.RunningVar = encodeFloats(l.RunningVar)
	}
	return def
}

func restoreModel(bundle *ModelBundle) (*TempConv, error) {
	if bundle.Type != "tempconv" {
		return nil, fmt.Errorf("%w: unknown bundle type %q", ErrConfig, bundle.Type)
	}

	cfg := Config{
		InputSize:    bundle.Config.InputSize,
		SeqLen:       bundle.Config.SeqLen,
		NKer:         bundle.Config.NKer,
		MLP4:         bundle.Config.MLP4,
		NumPositions: bundle.Config.NumPositions,
		Positions:    bundle.Config.Positions,
		T:            bundle.Config.T,
	}
	if bundle.Config.HasFC {
		cfg.NFC = bundle.Config.NFC
		if cfg.NFC == nil {
			cfg.NFC = []int{}
		}
	}

	m, err := NewTempConv(cfg)
	if err != nil {
		return nil, err
	}

	stacks := [][]LayerConfig{m.Conv, m.FC, m.Decoder}
	idx := 0
	for _, stack := range stacks {
		for i := range stack {
			if idx >= len(bundle.Layers) {
				return nil, fmt.Errorf("%w: bundle has %d layers, model needs more", ErrConfig, len(bundle.Layers))
			}
			if err := restoreLayer(&stack[i], &bundle.Layers[idx]); err != nil {
				return nil, fmt.Errorf("layer %d: %w", idx, err)
			}
			idx++
		}
	}
	if idx != len(bundle.Layers) {
		return nil, fmt.Errorf("%w: bundle has %d layers, model holds %d", ErrConfig, len(bundle.Layers), idx)
	}

	return m, nil
}

func restoreLayer(l *LayerConfig, def *LayerDefinition) error {
	if layerTypeNames[l.Type] != def.Type {
		return fmt.Errorf("%w: bundle layer type %q does not match model layer %q", ErrConfig, def.Type, layerTypeNames[l.Type])
	}

	switch l.Type {
	case LayerDense:
		if err := decodeInto(def.Weights, l.Weights); err != nil {
			return err
		}
		return decodeInto(def.Bias, l.Bias)
	case LayerConv1D:
		if err := decodeInto(def.Weights, l.Kernel); err != nil {
			return err
		}
		return decodeInto(def.Bias, l.Bias)
	case LayerBatchNorm:
		for _, pair := range []struct {
			src string
			dst []float32
		}{
			{def.Gamma, l.Gamma},
			{def.Beta, l.Beta},
			{def.RunningMean, l.RunningMean},
			{def.RunningVar, l.RunningVar},
		} {
			if err := decodeInto(pair.src, pair.dst); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeFloats(values []float32) string {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeInto(encoded string, dst []float32) error {
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode weights: %w", err)
	}
	if len(buf) != 4*len(dst) {
		return fmt.Errorf("%w: encoded weights hold %d values, layer needs %d", ErrConfig, len(buf)/4, len(dst))
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return nil
}
