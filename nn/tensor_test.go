package nn

import (
	"math"
	"testing"
)

// TestTensorCreation verifies basic tensor operations
func TestTensorCreation(t *testing.T) {
	tensor := NewTensor[float32](3, 4)
	if tensor.Size() != 12 {
		t.Errorf("Expected size 12, got %d", tensor.Size())
	}
	if len(tensor.Shape) != 2 || tensor.Shape[0] != 3 || tensor.Shape[1] != 4 {
		t.Errorf("Expected shape [3, 4], got %v", tensor.Shape)
	}

	data := []float64{1, 2, 3, 4, 5, 6}
	tensor2 := NewTensorFromSlice(data, 2, 3)
	if tensor2.Size() != 6 {
		t.Errorf("Expected size 6, got %d", tensor2.Size())
	}
	if tensor2.Data[0] != 1 || tensor2.Data[5] != 6 {
		t.Errorf("Data not correctly initialized")
	}
}

// TestTensorClone verifies tensor cloning
func TestTensorClone(t *testing.T) {
	original := NewTensorFromSlice([]int32{1, 2, 3, 4}, 4)
	clone := original.Clone()

	original.Data[0] = 100

	if clone.Data[0] != 1 {
		t.Errorf("Clone was modified when original changed")
	}
}

// TestTensorReshape verifies tensor reshaping
func TestTensorReshape(t *testing.T) {
	tensor := NewTensorFromSlice([]float32{1, 2, 3, 4, 5, 6}, 6)
	reshaped := tensor.Reshape(2, 3)

	if reshaped == nil {
		t.Fatal("Reshape returned nil")
	}
	if len(reshaped.Shape) != 2 || reshaped.Shape[0] != 2 || reshaped.Shape[1] != 3 {
		t.Errorf("Expected shape [2, 3], got %v", reshaped.Shape)
	}

	invalid := tensor.Reshape(2, 2)
	if invalid != nil {
		t.Error("Invalid reshape should return nil")
	}
}

// TestActivateGeneric verifies generic activation functions
func TestActivateGeneric(t *testing.T) {
	resultF32 := Activate[float32](0.5, ActivationSigmoid)
	expectedF32 := float32(1.0 / (1.0 + math.Exp(-0.5)))
	if math.Abs(float64(resultF32-expectedF32)) > 1e-6 {
		t.Errorf("Sigmoid float32: expected %f, got %f", expectedF32, resultF32)
	}

	if Activate[float32](-1.0, ActivationReLU) != 0 {
		t.Errorf("ReLU of negative should be 0")
	}
	if Activate[float32](2.0, ActivationReLU) != 2.0 {
		t.Errorf("ReLU of positive should pass through")
	}
	if Activate[float64](3.5, ActivationNone) != 3.5 {
		t.Errorf("None should be identity")
	}

	leaky := Activate[float32](-2.0, ActivationLeakyReLU)
	if math.Abs(float64(leaky+0.2)) > 1e-6 {
		t.Errorf("LeakyReLU of -2 should be -0.2, got %f", leaky)
	}
}

// TestDenseForwardGeneric verifies the dense layer against hand-computed values
func TestDenseForwardGeneric(t *testing.T) {
	// 2 inputs, 3 outputs, identity-ish weights
	weights := NewTensorFromSlice([]float32{
		1, 0, 0,
		0, 1, 0,
	}, 2*3)
	bias := NewTensorFromSlice([]float32{0.1, 0.2, 0.3}, 3)
	input := NewTensorFromSlice([]float32{1.0, 2.0}, 2)

	out := DenseForward(input, weights, bias, 2, 3, 1, ActivationNone)

	// Expected: [1*1 + 0.1, 2*1 + 0.2, 0.3]
	expected := []float32{1.1, 2.2, 0.3}
	if MaxAbsDiff(out.Data, expected) > 1e-5 {
		t.Errorf("Expected %v, got %v", expected, out.Data)
	}
}

// TestConv1DForwardSameLength verifies kernel-3/padding-1 convolutions
// preserve sequence length and compute the expected values
func TestConv1DForwardSameLength(t *testing.T) {
	// 1 input channel, 1 filter, kernel [1, 1, 1]: output is a moving sum
	input := NewTensorFromSlice([]float32{1, 2, 3, 4}, 4)
	kernel := NewTensorFromSlice([]float32{1, 1, 1}, 3)
	bias := NewTensorFromSlice([]float32{0}, 1)

	out := Conv1DForward(input, kernel, bias, 4, 1, 3, 1, 1, 1, 1, ActivationNone)

	if len(out.Data) != 4 {
		t.Fatalf("Expected same-length output of 4, got %d", len(out.Data))
	}
	expected := []float32{3, 6, 9, 7} // edges see zero padding
	if MaxAbsDiff(out.Data, expected) > 1e-5 {
		t.Errorf("Expected %v, got %v", expected, out.Data)
	}
}
