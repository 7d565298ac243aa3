package nn

import "fmt"

// Config describes a TempConv architecture.
type Config struct {
	// InputSize is the channel count of the raw input (features per step).
	InputSize int

	// NKer lists the output channel width of each convolution. At least one
	// entry; the input width is prepended internally and must not be given.
	NKer []int

	// SeqLen is the fixed sequence length the model is specialized for.
	SeqLen int

	// NFC lists the fully-connected widths. nil means absent; an empty
	// non-nil list degenerates to zero transforms but still marks the name
	// with FC. The flattened convolution width is prepended internally.
	NFC []int

	// MLP4 is the decoder width list, length >= 2. Its first entry is the
	// decoder input width (normally the last NFC width, or the flattened
	// convolution width when NFC is empty).
	MLP4 []int

	// NumPositions enables position encoding with positions 0..NumPositions-1
	// when > 0. Positions, when set, takes precedence and supplies an
	// explicit position list. The table width always equals InputSize since
	// the encoding is added to the raw input.
	NumPositions int
	Positions    []int

	// T is the frequency base of the sinusoid table; 0 selects the default
	// of 1000.
	T float64
}

func (c *Config) positionEncodingEnabled() bool {
	return c.NumPositions > 0 || len(c.Positions) > 0
}

// clone deep-copies the width lists so later caller mutation cannot reach
// into a built model.
func (c Config) clone() Config {
	out := c
	out.NKer = append([]int(nil), c.NKer...)
	if c.NFC != nil {
		out.NFC = append([]int{}, c.NFC...)
	}
	out.MLP4 = append([]int(nil), c.MLP4...)
	if c.Positions != nil {
		out.Positions = append([]int{}, c.Positions...)
	}
	return out
}

// NewTempConv builds the model from static configuration. Caller-supplied
// width lists are never mutated. Construction fails with ErrConfig on empty
// NKer, any non-positive width or dimension, or a decoder width list shorter
// than 2; nothing is silently corrected.
func NewTempConv(cfg Config) (*TempConv, error) {
	if cfg.InputSize <= 0 {
		return nil, fmt.Errorf("%w: input size must be positive, got %d", ErrConfig, cfg.InputSize)
	}
	if cfg.SeqLen <= 0 {
		return nil, fmt.Errorf("%w: sequence length must be positive, got %d", ErrConfig, cfg.SeqLen)
	}
	if len(cfg.NKer) == 0 {
		return nil, fmt.Errorf("%w: at least one convolution width required", ErrConfig)
	}

	// The name comes from the caller's width lists as given, before any
	// input width is prepended.
	name := "TempCNN_" + joinInts(cfg.NKer, "|")
	if cfg.NFC != nil {
		name += "FC" + joinInts(cfg.NFC, "|")
	}

	decoder, err := BuildDecoder(cfg.MLP4)
	if err != nil {
		return nil, err
	}

	conv, err := BuildConvStack(PrependWidth(cfg.InputSize, cfg.NKer), cfg.SeqLen)
	if err != nil {
		return nil, err
	}

	lastConv := cfg.NKer[len(cfg.NKer)-1]
	fc, err := BuildFCStack(PrependWidth(lastConv*cfg.SeqLen, cfg.NFC))
	if err != nil {
		return nil, err
	}

	m := &TempConv{
		InputSize: cfg.InputSize,
		SeqLen:    cfg.SeqLen,
		Name:      name,
		Conv:      conv,
		FC:        fc,
		Decoder:   decoder,
		cfg:       cfg.clone(),
	}

	if cfg.positionEncodingEnabled() {
		// The table width is always InputSize: the encoding is added to the
		// raw input, not to convolution output.
		var table *Tensor[float32]
		if len(cfg.Positions) > 0 {
			table = SinusoidEncodingTable(cfg.Positions, cfg.InputSize, cfg.T)
		} else {
			table = SinusoidEncodingTableN(cfg.NumPositions, cfg.InputSize, cfg.T)
		}
		m.positionEnc = NewPositionTable(table)
	}

	return m, nil
}
