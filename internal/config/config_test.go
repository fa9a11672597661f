package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReturnsZeroValueWhenFileAbsent(t *testing.T) {
	dir := t.TempDir()

	f, err := Load(dir)
	if err != nil {
		t.Fatalf("missing config file should not be an error: %v", err)
	}
	if f.OptLevel != nil || f.ConstSpillWeightRatio != nil {
		t.Fatalf("expected a zero-value File, got %+v", f)
	}
}

func TestLoadParsesProjectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	body := "opt_level: 2\nconstant_spill_weight_ratio: 8.5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing test fixture: %v", err)
	}

	f, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned an error: %v", err)
	}
	if f.OptLevel == nil || *f.OptLevel != 2 {
		t.Fatalf("expected opt_level 2, got %v", f.OptLevel)
	}
	if f.ConstSpillWeightRatio == nil || *f.ConstSpillWeightRatio != 8.5 {
		t.Fatalf("expected constant_spill_weight_ratio 8.5, got %v", f.ConstSpillWeightRatio)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("opt_level: [this is not an int\n"), 0o644); err != nil {
		t.Fatalf("writing test fixture: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected malformed yaml to produce an error")
	}
}

func TestResolveFlagsOverrideFile(t *testing.T) {
	fileOpt := 1
	fileRatio := 5.0
	file := &File{OptLevel: &fileOpt, ConstSpillWeightRatio: &fileRatio}

	flagOpt := 2
	cfg := Resolve(file, Flags{OptLevel: &flagOpt, OutputPath: "out.s"})

	if cfg.OptLevel != 2 {
		t.Fatalf("expected the flag's opt level to win, got %d", cfg.OptLevel)
	}
	if cfg.ConstSpillWeightRatio != 5.0 {
		t.Fatalf("expected the file's ratio to carry through when no flag overrides it, got %v", cfg.ConstSpillWeightRatio)
	}
	if cfg.OutputPath != "out.s" {
		t.Fatalf("expected the output path to pass through unchanged, got %q", cfg.OutputPath)
	}
}

func TestResolveFallsBackToHardDefaultsWhenBothAbsent(t *testing.T) {
	cfg := Resolve(&File{}, Flags{})
	if cfg.OptLevel != 0 {
		t.Fatalf("expected opt level 0 by default, got %d", cfg.OptLevel)
	}
	if cfg.OutputPath != "" {
		t.Fatalf("expected an empty output path to mean stdout, got %q", cfg.OutputPath)
	}
}
