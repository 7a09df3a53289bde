package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"10s", 10 * time.Second, false},
		{"1m", 1 * time.Minute, false},
		{"1.5h", 90 * time.Minute, false},
		{"1d", 24 * time.Hour, false},
		{"1w", 168 * time.Hour, false},
		{"2d2h", 50 * time.Hour, false},
		{"100ms", 100 * time.Millisecond, false},
		{"", 0, false},
		{"invalid", 0, true},
		{"3x", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestDurationYAML(t *testing.T) {
	var out struct {
		Delay Duration `yaml:"delay"`
	}
	if err := yaml.Unmarshal([]byte("delay: 30d\n"), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Delay.Std() != 30*Day {
		t.Errorf("Delay = %v, want 720h", out.Delay.Std())
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "delay: 720h0m0s\n" {
		t.Errorf("marshal = %q", string(data))
	}
}
