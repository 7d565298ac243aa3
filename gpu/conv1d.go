package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// Conv1DSpec defines the configuration for a 1D convolution compute layer
type Conv1DSpec struct {
	InChannels  int
	OutChannels int
	KernelSize  int
	Stride      int
	Padding     int
	SeqLen      int
	Activation  int       // ActXXX constant
	Weights     []float32 // [OutChannels * InChannels * KernelSize]
	Bias        []float32 // [OutChannels]
}

// Conv1DLayer holds GPU resources for one batched temporal convolution
type Conv1DLayer struct {
	Spec      Conv1DSpec
	batchSize int
	outputLen int

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

func (l *Conv1DLayer) InputBuffer() *wgpu.Buffer   { return l.inputBuffer }
func (l *Conv1DLayer) OutputBuffer() *wgpu.Buffer  { return l.outputBuffer }
func (l *Conv1DLayer) StagingBuffer() *wgpu.Buffer { return l.stagingBuffer }
func (l *Conv1DLayer) InputSize() int {
	return l.Spec.InChannels * l.Spec.SeqLen * l.batchSize
}
func (l *Conv1DLayer) OutputSize() int {
	return l.Spec.OutChannels * l.computeOutputLen() * l.batchSize
}

func (l *Conv1DLayer) computeOutputLen() int {
	stride := l.Spec.Stride
	if stride < 1 {
		stride = 1
	}
	return (l.Spec.SeqLen+2*l.Spec.Padding-l.Spec.KernelSize)/stride + 1
}

// GenerateShader creates the WGSL for this layer configuration.
// Buffer layouts match the CPU path: input[b][ic][pos], output[b][f][o],
// weights[f][ic][k].
func (l *Conv1DLayer) GenerateShader() string {
	stride := l.Spec.Stride
	if stride < 1 {
		stride = 1
	}

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
			let seq_len = %du;
			let in_channels = %du;
			let kernel_size = %du;
			let stride = %du;
			let padding = %di;
			let filters = %du;
			let out_len = %du;

			if (idx >= arrayLength(&output)) {
				return;
			}

			// idx = b * filters * out_len + f * out_len + o
			let b = idx / (filters * out_len);
			let f = (idx / out_len) %% filters;
			let o = idx %% out_len;

			var sum: f32 = biases[f];

			for (var ic: u32 = 0u; ic < in_channels; ic++) {
				for (var k: u32 = 0u; k < kernel_size; k++) {
					let in_pos = i32(o * stride + k) - padding;
					if (in_pos < 0 || in_pos >= i32(seq_len)) {
						continue;
					}
					let input_idx = b * in_channels * seq_len + ic * seq_len + u32(in_pos);
					let weight_idx = f * in_channels * kernel_size + ic * kernel_size + k;
					sum += input[input_idx] * weights[weight_idx];
				}
			}

			output[idx] = activate(sum);
		}
	`, wgslActivation(l.Spec.Activation),
		l.Spec.SeqLen, l.Spec.InChannels, l.Spec.KernelSize,
		stride, l.Spec.Padding, l.Spec.OutChannels, l.computeOutputLen())
}

// Build allocates buffers, compiles the pipeline and binds the resources
func (l *Conv1DLayer) Build(c *Context, label string, batchSize int) error {
	if Debug {
		Log("Building conv1d layer %s (batch %d)", label, batchSize)
	}
	l.batchSize = batchSize
	l.outputLen = l.computeOutputLen()
	if l.outputLen < 1 {
		return fmt.Errorf("conv1d output length %d not positive", l.outputLen)
	}

	var err error
	if l.inputBuffer, err = newStorageBuffer(c, label+"_In", l.InputSize()); err != nil {
		return err
	}
	if l.outputBuffer, err = newStorageBuffer(c, label+"_Out", l.OutputSize()); err != nil {
		return err
	}
	if l.weightBuffer, err = NewFloatBuffer(l.Spec.Weights, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("weight buf: %v", err)
	}
	if l.biasBuffer, err = NewFloatBuffer(l.Spec.Bias, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("bias buf: %v", err)
	}
	if l.stagingBuffer, err = newStagingBuffer(c, label+"_Staging", l.OutputSize()); err != nil {
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

func (l *Conv1DLayer) compile(c *Context, label string) error {
	module, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: l.GenerateShader()},
	})
	if err != nil {
		return fmt.Errorf("shader compile: %v", err)
	}

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

	totalThreads := uint32(l.OutputSize())
	l.workgroupsX = (totalThreads + 255) / 256
	return nil
}

// Dispatch records the compute pass for this layer
func (l *Conv1DLayer) Dispatch(pass *wgpu.ComputePassEncoder) {
	pass.SetPipeline(l.pipeline)
	pass.SetBindGroup(0, l.bindGroup, nil)
	pass.DispatchWorkgroups(l.workgroupsX, 1, 1)
}

// Cleanup releases all GPU resources held by the layer
func (l *Conv1DLayer) Cleanup() {
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
