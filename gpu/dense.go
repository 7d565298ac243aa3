package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// DenseSpec defines the configuration for a dense compute layer
type DenseSpec struct {
	InputSize  int
	OutputSize int
	Activation int       // ActXXX constant
	Weights    []float32 // [InputSize * OutputSize], input-major (CPU layout)
	Biases     []float32 // [OutputSize]
}

// DenseLayer holds GPU resources for one batched dense forward pass
type DenseLayer struct {
	Spec      DenseSpec
	batchSize int

	pipeline        *wgpu.ComputePipeline
	bindGroupLayout *wgpu.BindGroupLayout
	bindGroup       *wgpu.BindGroup

	inputBuffer   *wgpu.Buffer
	outputBuffer  *wgpu.Buffer
	stagingBuffer *wgpu.Buffer
	weightBuffer  *wgpu.Buffer
	biasBuffer    *wgpu.Buffer

	workgroupsX uint32
}

func (l *DenseLayer) InputBuffer() *wgpu.Buffer   { return l.inputBuffer }
func (l *DenseLayer) OutputBuffer() *wgpu.Buffer  { return l.outputBuffer }
func (l *DenseLayer) StagingBuffer() *wgpu.Buffer { return l.stagingBuffer }
func (l *DenseLayer) InputSize() int              { return l.Spec.InputSize * l.batchSize }
func (l *DenseLayer) OutputSize() int             { return l.Spec.OutputSize * l.batchSize }

// transposeWeights reorders [rows, cols] to [cols, rows]. The shader wants
// weights output-major so each invocation reads a contiguous run.
func transposeWeights(in []float32, rows, cols int) []float32 {
	out := make([]float32, len(in))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[c*rows+r] = in[r*cols+c]
		}
	}
	return out
}

// GenerateShader creates the WGSL for this layer configuration
func (l *DenseLayer) GenerateShader() string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> input : array<f32>;
		@group(0) @binding(1) var<storage, read_write> output : array<f32>;
		@group(0) @binding(2) var<storage, read> weights : array<f32>;
		@group(0) @binding(3) var<storage, read> biases : array<f32>;

		fn activate(x: f32) -> f32 {
			%s
		}

		@compute @workgroup_size(256)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let idx = gid.x;
			let n_out = %du;
			let n_in = %du;

			if (idx >= arrayLength(&output)) {
				return;
			}

			// idx = sample_idx * n_out + out_idx
			let sample_idx = idx / n_out;
			let out_idx = idx %% n_out;

			var sum: f32 = biases[out_idx];
			let weight_offset = out_idx * n_in;
			let input_offset = sample_idx * n_in;

			for (var i: u32 = 0u; i < n_in; i++) {
				sum += weights[weight_offset + i] * input[input_offset + i];
			}

			output[idx] = activate(sum);
		}
	`, wgslActivation(l.Spec.Activation), l.Spec.OutputSize, l.Spec.InputSize)
}

// Build allocates buffers, compiles the pipeline and binds the resources
func (l *DenseLayer) Build(c *Context, label string, batchSize int) error {
	if Debug {
		Log("Building dense layer %s (batch %d)", label, batchSize)
	}
	l.batchSize = batchSize

	var err error
	if l.inputBuffer, err = newStorageBuffer(c, label+"_In", l.Spec.InputSize*batchSize); err != nil {
		return err
	}
	if l.outputBuffer, err = newStorageBuffer(c, label+"_Out", l.Spec.OutputSize*batchSize); err != nil {
		return err
	}

	transposed := transposeWeights(l.Spec.Weights, l.Spec.InputSize, l.Spec.OutputSize)
	if l.weightBuffer, err = NewFloatBuffer(transposed, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("weight buf: %v", err)
	}
	if l.biasBuffer, err = NewFloatBuffer(l.Spec.Biases, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("bias buf: %v", err)
	}
	if l.stagingBuffer, err = newStagingBuffer(c, label+"_Staging", l.Spec.OutputSize*batchSize); err != nil {
		return err
	}

	if err := l.compile(c, label); err != nil {
		return err
	}

	l.bindGroup, err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + "_Bind",
		Layout: l.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: l.inputBuffer, Size: l.inputBuffer.GetSize()},
			{Binding: 1, Buffer: l.outputBuffer, Size: l.outputBuffer.GetSize()},
			{Binding: 2, Buffer: l.weightBuffer, Size: l.weightBuffer.GetSize()},
			{Binding: 3, Buffer: l.biasBuffer, Size: l.biasBuffer.GetSize()},
		},
	})
	return err
}

func (l *DenseLayer) compile(c *Context, label string) error {
	module, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: l.GenerateShader()},
	})
	if err != nil {
		return fmt.Errorf("shader compile: %v", err)
	}

	// Explicit bind group layout to avoid "auto" layout issues in WASM
	l.bindGroupLayout, err = c.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: label + "_BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
			{Binding: 2, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bgl: %v", err)
	}

	pipelineLayout, err := c.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + "_Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{l.bindGroupLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %v", err)
	}

	l.pipeline, err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label + "_Pipe",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("pipeline create: %v", err)
	}
	module.Release()

	totalThreads := uint32(l.Spec.OutputSize * l.batchSize)
	l.workgroupsX = (totalThreads + 255) / 256
	return nil
}

// Dispatch records the compute pass for this layer
func (l *DenseLayer) Dispatch(pass *wgpu.ComputePassEncoder) {
	pass.SetPipeline(l.pipeline)
	pass.SetBindGroup(0, l.bindGroup, nil)
	pass.DispatchWorkgroups(l.workgroupsX, 1, 1)
}

// Cleanup releases all GPU resources held by the layer
func (l *DenseLayer) Cleanup() {
	for _, b := range []*wgpu.Buffer{l.inputBuffer, l.outputBuffer, l.stagingBuffer, l.weightBuffer, l.biasBuffer} {
		if b != nil {
			b.Destroy()
		}
	}
	if l.pipeline != nil {
		l.pipeline.Release()
	}
	if l.bindGroup != nil {
		l.bindGroup.Release()
	}
}
