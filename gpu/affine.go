package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// AffineSpec defines a per-channel scale-and-shift compute layer:
// y = scale[c] * x + shift[c], then activation. This is the shape inference
// batch normalization takes once its statistics are frozen and folded.
type AffineSpec struct {
	Channels   int
	Inner      int // trailing positions per channel: seq length after a conv, 1 after a dense
	Activation int // ActXXX constant
	Scale      []float32
	Shift      []float32
}

// AffineLayer holds GPU resources for one batched per-channel affine pass
type AffineLayer struct {
	Spec      AffineSpec
	batchSize int

	pipeline        *wgpu.ComputePipeline
	bindGroupLayout *wgpu.BindGroupLayout
	bindGroup       *wgpu.BindGroup

	inputBuffer   *wgpu.Buffer
	outputBuffer  *wgpu.Buffer
	stagingBuffer *wgpu.Buffer
	scaleBuffer   *wgpu.Buffer
	shiftBuffer   *wgpu.Buffer

	workgroupsX uint32
}

func (l *AffineLayer) InputBuffer() *wgpu.Buffer   { return l.inputBuffer }
func (l *AffineLayer) OutputBuffer() *wgpu.Buffer  { return l.outputBuffer }
func (l *AffineLayer) StagingBuffer() *wgpu.Buffer { return l.stagingBuffer }

func (l *AffineLayer) inner() int {
	if l.Spec.Inner < 1 {
		return 1
	}
	return l.Spec.Inner
}

func (l *AffineLayer) InputSize() int  { return l.Spec.Channels * l.inner() * l.batchSize }
func (l *AffineLayer) OutputSize() int { return l.InputSize() }

// GenerateShader creates the WGSL for this layer configuration.
// Layout matches the CPU path: data[b][c][i] flattened.
func (l *AffineLayer) GenerateShader() string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> input : array<f32>;
		@group(0) @binding(1) var<storage, read_write> output : array<f32>;
		@group(0) @binding(2) var<storage, read> scale : array<f32>;
		@group(0) @binding(3) var<storage, read> shift : array<f32>;

		fn activate(x: f32) -> f32 {
			%s
		}

		@compute @workgroup_size(256)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let idx = gid.x;
			let channels = %du;
			let inner = %du;

			if (idx >= arrayLength(&output)) {
				return;
			}

			let c = (idx / inner) %% channels;
			output[idx] = activate(scale[c] * input[idx] + shift[c]);
		}
	`, wgslActivation(l.Spec.Activation), l.Spec.Channels, l.inner())
}

// Build allocates buffers, compiles the pipeline and binds the resources
func (l *AffineLayer) Build(c *Context, label string, batchSize int) error {
	if Debug {
		Log("Building affine layer %s (batch %d)", label, batchSize)
	}
	l.batchSize = batchSize

	var err error
	if l.inputBuffer, err = newStorageBuffer(c, label+"_In", l.InputSize()); err != nil {
		return err
	}
	if l.outputBuffer, err = newStorageBuffer(c, label+"_Out", l.OutputSize()); err != nil {
		return err
	}
	if l.scaleBuffer, err = NewFloatBuffer(l.Spec.Scale, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("scale buf: %v", err)
	}
	if l.shiftBuffer, err = NewFloatBuffer(l.Spec.Shift, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("shift buf: %v", err)
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
			{Binding: 2, Buffer: l.scaleBuffer, Size: l.scaleBuffer.GetSize()},
			{Binding: 3, Buffer: l.shiftBuffer, Size: l.shiftBuffer.GetSize()},
		},
	})
	return err
}

func (l *AffineLayer) compile(c *Context, label string) error {
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
func (l *AffineLayer) Dispatch(pass *wgpu.ComputePassEncoder) {
	pass.SetPipeline(l.pipeline)
	pass.SetBindGroup(0, l.bindGroup, nil)
	pass.DispatchWorkgroups(l.workgroupsX, 1, 1)
}

// Cleanup releases all GPU resources held by the layer
func (l *AffineLayer) Cleanup() {
	for _, b := range []*wgpu.Buffer{l.inputBuffer, l.outputBuffer, l.stagingBuffer, l.scaleBuffer, l.shiftBuffer} {
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
