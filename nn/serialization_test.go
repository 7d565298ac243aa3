package nn

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestSaveLoadRoundTrip verifies a reloaded model reproduces the original's
// outputs exactly
func TestSaveLoadRoundTrip(t *testing.T) {
	m, err := NewTempConv(referenceConfig())
	if err != nil {
		t.Fatalf("NewTempConv failed: %v", err)
	}

	input := NewTensor[float32](2, 5, 4)
	for i := range input.Data {
		input.Data[i] = float32(i%11)*0.3 - 1.0
	}
	want, err := m.Forward(input)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := SaveModel(m, path); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	if loaded.Name != m.Name {
		t.Errorf("name changed across save/load: %q vs %q", loaded.Name, m.Name)
	}
	if loaded.OutputSize() != m.OutputSize() {
		t.Errorf("output size changed: %d vs %d", loaded.OutputSize(), m.OutputSize())
	}
	if !loaded.PositionEncodingEnabled() {
		t.Error("position encoding lost across save/load")
	}

	got, err := loaded.Forward(input)
	if err != nil {
		t.Fatalf("loaded Forward failed: %v", err)
	}
	if MaxAbsDiff(got.Data, want.Data) != 0 {
		t.Errorf("reloaded model diverges, max diff %g", MaxAbsDiff(got.Data, want.Data))
	}
}

// TestSaveLoadPreservesFCAbsence verifies the nil-versus-empty NFC
// distinction survives a round trip, since it feeds the name
func TestSaveLoadPreservesFCAbsence(t *testing.T) {
	dir := t.TempDir()

	for _, tc := range []struct {
		nfc  []int
		mlp4 []int
		name string
	}{
		{nil, []int{80, 10, 3}, "TempCNN_8|16"},
		{[]int{}, []int{80, 10, 3}, "TempCNN_8|16FC"},
		{[]int{32}, []int{32, 10, 3}, "TempCNN_8|16FC32"},
	} {
		cfg := referenceConfig()
		cfg.NFC = tc.nfc
		cfg.MLP4 = tc.mlp4

		m, err := NewTempConv(cfg)
		if err != nil {
			t.Fatalf("%s: NewTempConv failed: %v", tc.name, err)
		}

		path := filepath.Join(dir, tc.name+".json")
		if err := SaveModel(m, path); err != nil {
			t.Fatalf("%s: SaveModel failed: %v", tc.name, err)
		}
		loaded, err := LoadModel(path)
		if err != nil {
			t.Fatalf("%s: LoadModel failed: %v", tc.name, err)
		}
		if loaded.Name != tc.name {
			t.Errorf("expected name %q after reload, got %q", tc.name, loaded.Name)
		}
	}
}

// TestSaveLoadRunningStats verifies accumulated normalization statistics
// are part of the bundle
func TestSaveLoadRunningStats(t *testing.T) {
	m, err := NewTempConv(referenceConfig())
	if err != nil {
		t.Fatalf("NewTempConv failed: %v", err)
	}
	m.Training = true

	input := NewTensor[float32](4, 5, 4)
	for i := range input.Data {
		input.Data[i] = float32(i) * 0.01
	}
	if _, err := m.Forward(input); err != nil {
		t.Fatalf("training Forward failed: %v", err)
	}
	m.Training = false

	path := filepath.Join(t.TempDir(), "trained.json")
	if err := SaveModel(m, path); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}
	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	for i, l := range m.Conv {
		if l.Type != LayerBatchNorm {
			continue
		}
		if MaxAbsDiff(loaded.Conv[i].RunningMean, l.RunningMean) != 0 {
			t.Errorf("conv layer %d: running mean lost", i)
		}
		if MaxAbsDiff(loaded.Conv[i].RunningVar, l.RunningVar) != 0 {
			t.Errorf("conv layer %d: running variance lost", i)
		}
	}
}

// TestLoadRejectsWrongType verifies bundle type checking
func TestLoadRejectsWrongType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"type":"other","version":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(path); err == nil || !strings.Contains(err.Error(), "other") {
		t.Errorf("expected unknown-type error, got %v", err)
	}
}

// TestLoadMissingFile verifies a readable error on a missing path
func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadModel(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
