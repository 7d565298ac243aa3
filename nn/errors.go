package nn

import "errors"

var (
	// ErrConfig indicates an invalid architecture configuration: empty or
	// non-positive width lists, a decoder width list shorter than 2, or a
	// position table incompatible with the input width. Raised at
	// construction time and never silently corrected.
	ErrConfig = errors.New("nn: invalid configuration")

	// ErrShape indicates a forward input whose dimensions do not match the
	// model: wrong channel count, or a sequence length the position table
	// cannot cover. Fatal to the call, does not corrupt model state.
	ErrShape = errors.New("nn: shape mismatch")
)
