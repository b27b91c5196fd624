// Package config loads and validates node configuration. Loading is a
// two-step pass: deserialize, then clamp anything the file must not be
// allowed to weaken (conflict-check enforcement in particular).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultResolutionTimeout bounds one AI merge attempt.
	DefaultResolutionTimeout = 30 * time.Second
	// DefaultMaxRetries is the retry budget after the initial attempt.
	DefaultMaxRetries = 2
)

// Peer represents a peer node in the cluster.
type Peer struct {
	ID   string `yaml:"id" validate:"required"`
	Addr string `yaml:"addr" validate:"required"`
}

// Resolution configures the default conflict resolution behavior.
type Resolution struct {
	Strategy       string `yaml:"strategy" validate:"omitempty,oneof=keep_local keep_remote keep_both ai_merge"`
	Hint           string `yaml:"hint" validate:"omitempty,oneof=smart_merge content_based time_based"`
	MaxRetries     int    `yaml:"max_retries" validate:"gte=0"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=0"`
}

// Timeout returns the per-attempt timeout as a duration.
func (r Resolution) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return DefaultResolutionTimeout
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Config holds the node configuration.
type Config struct {
	NodeID     string     `yaml:"node_id" validate:"required"`
	ListenAddr string     `yaml:"listen_addr"`
	Peers      []Peer     `yaml:"peers" validate:"dive"`
	Resolution Resolution `yaml:"resolution"`

	// EnforceConflictCheck is clamped to true after load: execution may
	// never consume memory that skipped the conflict check, regardless
	// of what the file requested.
	EnforceConflictCheck bool `yaml:"enforce_conflict_check"`
}

// fileConfig mirrors Config for deserialization. Pointer fields tell an
// explicit value apart from an absent key: enforce_conflict_check=false
// must be seen (and warned about) rather than defaulted, and
// max_retries=0 is a legal choice, not a request for the default.
type fileConfig struct {
	NodeID     string `yaml:"node_id"`
	ListenAddr string `yaml:"listen_addr"`
	Peers      []Peer `yaml:"peers"`
	Resolution struct {
		Strategy       string `yaml:"strategy"`
		Hint           string `yaml:"hint"`
		MaxRetries     *int   `yaml:"max_retries"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"resolution"`
	EnforceConflictCheck *bool `yaml:"enforce_conflict_check"`
}

// Load reads, validates, and clamps a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse validates and clamps raw YAML config bytes.
func Parse(data []byte) (Config, error) {
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg := Config{
		NodeID:     raw.NodeID,
		ListenAddr: raw.ListenAddr,
		Peers:      raw.Peers,
		Resolution: Resolution{
			Strategy:       raw.Resolution.Strategy,
			Hint:           raw.Resolution.Hint,
			MaxRetries:     DefaultMaxRetries,
			TimeoutSeconds: raw.Resolution.TimeoutSeconds,
		},
	}
	if cfg.Resolution.Strategy == "" {
		cfg.Resolution.Strategy = "keep_local"
	}
	if cfg.Resolution.Hint == "" {
		cfg.Resolution.Hint = "smart_merge"
	}
	if raw.Resolution.MaxRetries != nil {
		cfg.Resolution.MaxRetries = *raw.Resolution.MaxRetries
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	// Clamp, don't trust: a file asking to disable enforcement gets a
	// warning instead of a weaker engine.
	if raw.EnforceConflictCheck != nil && !*raw.EnforceConflictCheck {
		slog.Warn("config requested enforce_conflict_check=false; forcing true")
	}
	cfg.EnforceConflictCheck = true

	return cfg, nil
}

// ParsePeers parses a comma-separated list of peers in the format:
// "id1=addr1,id2=addr2,id3=addr3"
func ParsePeers(peersStr string) ([]Peer, error) {
	if peersStr == "" {
		return []Peer{}, nil
	}

	parts := strings.Split(peersStr, ",")
	peers := make([]Peer, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid peer format: %s (expected id=addr)", part)
		}

		id := strings.TrimSpace(kv[0])
		addr := strings.TrimSpace(kv[1])

		if id == "" || addr == "" {
			return nil, fmt.Errorf("peer ID and address cannot be empty: %s", part)
		}

		peers = append(peers, Peer{
			ID:   id,
			Addr: addr,
		})
	}

	return peers, nil
}
