package config

import (
	"os"
	"path/filepath"
	"testing"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

func TestLoadDefaultsFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	if cfg.RelaxationBudget == nil {
		t.Fatal("RelaxationBudget must be set")
	}
	if cfg.GreedyFactor == nil {
		t.Fatal("GreedyFactor must be set")
	}
	if *cfg.RelaxationBudget <= 0 {
		t.Errorf("RelaxationBudget must be positive, got %d", *cfg.RelaxationBudget)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must pass Validate(): %v", err)
	}
}

func TestEmptyMatchTuning(t *testing.T) {
	cfg := EmptyMatchTuning()
	if cfg.RelaxationBudget != nil {
		t.Error("expected RelaxationBudget to be nil")
	}
	if cfg.GreedyFactor != nil {
		t.Error("expected GreedyFactor to be nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("an empty config must still pass Validate(): %v", err)
	}
}

func TestLoadMatchTuningPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")
	if err := os.WriteFile(configPath, []byte(`{"greedy_factor": 2.5}`), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadMatchTuning(configPath)
	if err != nil {
		t.Fatalf("failed to load partial config: %v", err)
	}
	if cfg.GreedyFactor == nil || *cfg.GreedyFactor != 2.5 {
		t.Errorf("expected GreedyFactor 2.5, got %v", cfg.GreedyFactor)
	}
	if cfg.GetRelaxationBudget() != 300000 {
		t.Errorf("expected the omitted field to fall back to its default, got %d", cfg.GetRelaxationBudget())
	}
}

func TestLoadMatchTuningMissing(t *testing.T) {
	_, err := LoadMatchTuning("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("expected an error when loading a missing file")
	}
}

func TestLoadMatchTuningRejectsNonJSON(t *testing.T) {
	_, err := LoadMatchTuning("/some/path/config.yaml")
	if err == nil {
		t.Error("expected an error for a non-.json extension")
	}
}

func TestLoadMatchTuningInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")
	if err := os.WriteFile(configPath, []byte(`{"greedy_factor": `), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := LoadMatchTuning(configPath); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestLoadMatchTuningRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")
	if err := os.WriteFile(configPath, make([]byte, 2*1024*1024), 0644); err != nil {
		t.Fatalf("failed to write large file: %v", err)
	}
	if _, err := LoadMatchTuning(configPath); err == nil {
		t.Error("expected an error for a file over the size limit")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *MatchTuning
		wantErr bool
	}{
		{name: "empty config is valid", cfg: &MatchTuning{}, wantErr: false},
		{name: "negative relaxation budget", cfg: &MatchTuning{RelaxationBudget: ptrInt(-1)}, wantErr: true},
		{name: "negative greedy factor", cfg: &MatchTuning{GreedyFactor: ptrFloat64(-0.5)}, wantErr: true},
		{name: "non-positive max candidates", cfg: &MatchTuning{MaxCandidatesPerState: ptrInt(0)}, wantErr: true},
		{name: "negative fallback cost", cfg: &MatchTuning{FallbackDistanceCost: ptrFloat64(-1)}, wantErr: true},
		{name: "non-positive max speed", cfg: &MatchTuning{MaxAlongSegmentSpeed: ptrFloat64(0)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyMatchTuning()
	if cfg.GetGreedyFactor() != 1.0 {
		t.Errorf("GetGreedyFactor() = %v, want 1.0", cfg.GetGreedyFactor())
	}
	if cfg.GetFallbackDistanceCost() != 300.0 {
		t.Errorf("GetFallbackDistanceCost() = %v, want 300.0", cfg.GetFallbackDistanceCost())
	}
	if cfg.GetMaxCandidatesPerState() != 5 {
		t.Errorf("GetMaxCandidatesPerState() = %v, want 5", cfg.GetMaxCandidatesPerState())
	}
}
