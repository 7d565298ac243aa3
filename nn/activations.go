package nn

import (
	"math"
)

// Activate applies the activation function element-wise for any numeric type.
func Activate[T Numeric](v T, activation ActivationType) T {
	return T(activateFloat64(float64(v), activation))
}

// ActivateDerivative computes the derivative of the activation function with
// respect to the PRE-activation value.
func ActivateDerivative[T Numeric](preActivation T, activation ActivationType) T {
	v := float64(preActivation)
	switch activation {
	case ActivationReLU:
		if v > 0 {
			return T(1.0)
		}
		return T(0.0)
	case ActivationLeakyReLU:
		if v >= 0 {
			return T(1.0)
		}
		leakySlope := 0.1
		return T(leakySlope)
	case ActivationSigmoid:
		sig := 1.0 / (1.0 + math.Exp(-v))
		return T(sig * (1.0 - sig))
	case ActivationTanh:
		t := math.Tanh(v)
		return T(1.0 - t*t)
	default:
		return T(1.0)
	}
}

// activateCPU applies the activation function to a float32 value
func activateCPU(v float32, activation ActivationType) float32 {
	return float32(activateFloat64(float64(v), activation))
}

func activateFloat64(v float64, activation ActivationType) float64 {
	switch activation {
	case ActivationReLU:
		if v < 0 {
			return 0
		}
		return v
	case ActivationLeakyReLU:
		if v < 0 {
			return v * 0.1
		}
		return v
	case ActivationSigmoid:
		return 1.0 / (1.0 + math.Exp(-v))
	case ActivationTanh:
		return math.Tanh(v)
	default:
		return v
	}
}
