package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// Activation codes shared by the generated shaders
const (
	ActNone      = 0
	ActReLU      = 1
	ActLeakyReLU = 2
	ActSigmoid   = 3
	ActTanh      = 4
)

// wgslActivation returns the body of the WGSL activate(x) function for a
// given activation code
func wgslActivation(act int) string {
	switch act {
	case ActReLU:
		return "return max(x, 0.0);"
	case ActLeakyReLU:
		return "return select(0.1 * x, x, x >= 0.0);"
	case ActSigmoid:
		return "return 1.0 / (1.0 + exp(-x));"
	case ActTanh:
		return "return tanh(x);"
	default:
		return "return x;"
	}
}

// ForwardLayer is a GPU compute layer usable in a Sequence. Build allocates
// buffers and compiles the pipeline for a fixed batch size; buffers are
// sized for the whole batch.
type ForwardLayer interface {
	Build(c *Context, label string, batchSize int) error
	Dispatch(pass *wgpu.ComputePassEncoder)

	InputBuffer() *wgpu.Buffer
	OutputBuffer() *wgpu.Buffer
	StagingBuffer() *wgpu.Buffer

	// InputSize and OutputSize are per-batch element counts.
	InputSize() int
	OutputSize() int

	Cleanup()
}

// Sequence chains compute layers: each layer's output buffer is copied into
// the next layer's input buffer on the GPU, so a forward pass is a single
// command submission with one readback at the end.
type Sequence struct {
	Layers    []ForwardLayer
	BatchSize int

	built bool
}

// NewSequence creates a sequence over the given layers
func NewSequence(layers ...ForwardLayer) *Sequence {
	return &Sequence{Layers: layers}
}

// Build initializes all GPU resources for a fixed batch size
func (s *Sequence) Build(batchSize int) error {
	if len(s.Layers) == 0 {
		return fmt.Errorf("no layers to build")
	}
	if batchSize < 1 {
		batchSize = 1
	}

	c, err := GetContext()
	if err != nil {
		return err
	}

	for i, l := range s.Layers {
		label := fmt.Sprintf("L%d", i)
		if err := l.Build(c, label, batchSize); err != nil {
			s.Cleanup()
			return fmt.Errorf("build layer %d: %w", i, err)
		}
	}

	s.BatchSize = batchSize
	s.built = true
	return nil
}

// Forward executes the sequence on the GPU and reads back the final output
func (s *Sequence) Forward(input []float32) ([]float32, error) {
	if !s.built {
		return nil, fmt.Errorf("sequence not built")
	}

	c, err := GetContext()
	if err != nil {
		return nil, err
	}

	first := s.Layers[0]
	if len(input) != first.InputSize() {
		return nil, fmt.Errorf("input has %d values, layer 0 expects %d", len(input), first.InputSize())
	}

	enc, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}

	c.Queue.WriteBuffer(first.InputBuffer(), 0, wgpu.ToBytes(input))

	for i, l := range s.Layers {
		pass := enc.BeginComputePass(nil)
		l.Dispatch(pass)
		pass.End()

		if i < len(s.Layers)-1 {
			next := s.Layers[i+1]
			enc.CopyBufferToBuffer(l.OutputBuffer(), 0, next.InputBuffer(), 0, l.OutputBuffer().GetSize())
		} else {
			enc.CopyBufferToBuffer(l.OutputBuffer(), 0, l.StagingBuffer(), 0, l.OutputBuffer().GetSize())
		}
	}

	cmd, err := enc.Finish(nil)
	if err != nil {
		return nil, err
	}
	c.Queue.Submit(cmd)

	last := s.Layers[len(s.Layers)-1]
	return readStagingBuffer(c, last.StagingBuffer(), last.OutputSize())
}

// Cleanup releases all layer resources
func (s *Sequence) Cleanup() {
	for _, l := range s.Layers {
		l.Cleanup()
	}
	s.built = false
}
