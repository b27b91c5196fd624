package config

import (
	"testing"
	"time"
)

func TestParsePeers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Peer
		wantErr bool
	}{
		{
			name:  "empty string",
			input: "",
			want:  []Peer{},
		},
		{
			name:  "single peer",
			input: "n1=127.0.0.1:50051",
			want: []Peer{
				{ID: "n1", Addr: "127.0.0.1:50051"},
			},
		},
		{
			name:  "multiple peers",
			input: "n1=127.0.0.1:50051,n2=127.0.0.1:50052,n3=127.0.0.1:50053",
			want: []Peer{
				{ID: "n1", Addr: "127.0.0.1:50051"},
				{ID: "n2", Addr: "127.0.0.1:50052"},
				{ID: "n3", Addr: "127.0.0.1:50053"},
			},
		},
		{
			name:  "with spaces",
			input: "n1 = 127.0.0.1:50051 , n2 = 127.0.0.1:50052",
			want: []Peer{
				{ID: "n1", Addr: "127.0.0.1:50051"},
				{ID: "n2", Addr: "127.0.0.1:50052"},
			},
		},
		{
			name:    "invalid format - no equals",
			input:   "n1:127.0.0.1:50051",
			wantErr: true,
		},
		{
			name:    "invalid format - empty ID",
			input:   "=127.0.0.1:50051",
			wantErr: true,
		},
		{
			name:    "invalid format - empty addr",
			input:   "n1=",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeers(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d peers, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Peer %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("node_id: n1\n"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Resolution.Strategy != "keep_local" {
		t.Errorf("Expected default strategy keep_local, got %q", cfg.Resolution.Strategy)
	}
	if cfg.Resolution.Hint != "smart_merge" {
		t.Errorf("Expected default hint smart_merge, got %q", cfg.Resolution.Hint)
	}
	if cfg.Resolution.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected default max retries, got %d", cfg.Resolution.MaxRetries)
	}
	if cfg.Resolution.Timeout() != DefaultResolutionTimeout {
		t.Errorf("Expected default timeout, got %v", cfg.Resolution.Timeout())
	}
	if !cfg.EnforceConflictCheck {
		t.Error("Enforcement must default to true")
	}
}

func TestParse_ExplicitZeroRetries(t *testing.T) {
	cfg, err := Parse([]byte("node_id: n1\nresolution:\n  max_retries: 0\n"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Resolution.MaxRetries != 0 {
		t.Errorf("An explicit 0 must survive, got %d", cfg.Resolution.MaxRetries)
	}
}

func TestParse_EnforcementClampedToTrue(t *testing.T) {
	cfg, err := Parse([]byte("node_id: n1\nenforce_conflict_check: false\n"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !cfg.EnforceConflictCheck {
		t.Error("An explicit false must be clamped to true")
	}
}

func TestParse_Full(t *testing.T) {
	data := []byte(`
node_id: n1
listen_addr: ":9000"
peers:
  - id: n2
    addr: "127.0.0.1:9001"
  - id: n3
    addr: "127.0.0.1:9002"
resolution:
  strategy: ai_merge
  hint: time_based
  max_retries: 5
  timeout_seconds: 10
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(cfg.Peers) != 2 || cfg.Peers[1].ID != "n3" {
		t.Errorf("Unexpected peers: %+v", cfg.Peers)
	}
	if cfg.Resolution.Strategy != "ai_merge" || cfg.Resolution.Hint != "time_based" {
		t.Errorf("Unexpected resolution config: %+v", cfg.Resolution)
	}
	if cfg.Resolution.Timeout() != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", cfg.Resolution.Timeout())
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing node id", "listen_addr: ':9000'\n"},
		{"bad strategy", "node_id: n1\nresolution:\n  strategy: coin_flip\n"},
		{"peer without addr", "node_id: n1\npeers:\n  - id: n2\n"},
		{"malformed yaml", "node_id: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
