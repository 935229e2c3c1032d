// Package config parses server flags and loads simulation tuning.
package config

import (
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/and161185/pet-keeper/internal/lifecycle"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds server process settings.
type Config struct {
	Addr     string // gRPC listen address
	OpsAddr  string // ops HTTP listen address; empty disables
	DSN      string // PostgreSQL DSN; empty selects the in-memory store
	MaxConns int32

	JWTKey   string
	CertFile string
	KeyFile  string
	Insecure bool // serve gRPC without TLS
	Dev      bool // reflection and development logging

	StoreTimeout time.Duration
	LockTimeout  time.Duration

	SweepInterval time.Duration // 0 disables the sweep
	SweepIdle     time.Duration
	SweepWorkers  int
	SweepBatch    int

	TuningFile string
	Tuning     lifecycle.Tuning
}

// Load parses args (without the program name) and the tuning overlay.
func Load(args []string) (Config, error) {
	var c Config
	fs := flag.NewFlagSet("pet-server", flag.ContinueOnError)
	fs.StringVar(&c.Addr, "addr", ":8443", "gRPC listen address")
	fs.StringVar(&c.OpsAddr, "ops-addr", ":8081", "ops HTTP listen address (empty disables)")
	fs.StringVar(&c.DSN, "dsn", "", "PostgreSQL DSN (empty: in-memory store)")
	maxConns := fs.Int("max-conns", 0, "max pool connections (0: pgx default)")
	fs.StringVar(&c.JWTKey, "jwt-key", "", "HS256 signing key (required)")
	fs.StringVar(&c.CertFile, "tls-cert", "cert.pem", "TLS certificate (PEM)")
	fs.StringVar(&c.KeyFile, "tls-key", "key.pem", "TLS private key (PEM)")
	fs.BoolVar(&c.Insecure, "insecure", false, "serve without TLS (local only)")
	fs.BoolVar(&c.Dev, "dev", false, "enable reflection and development logging")
	fs.DurationVar(&c.StoreTimeout, "store-timeout", 3*time.Second, "bound for each storage call")
	fs.DurationVar(&c.LockTimeout, "lock-timeout", 2*time.Second, "bound for acquiring a pet lock")
	fs.DurationVar(&c.SweepInterval, "sweep-interval", time.Hour, "passive decay sweep cadence (0 disables)")
	fs.DurationVar(&c.SweepIdle, "sweep-idle", time.Hour, "sweep pets idle for at least this long")
	fs.IntVar(&c.SweepWorkers, "sweep-workers", 4, "concurrent pets per sweep")
	fs.IntVar(&c.SweepBatch, "sweep-batch", 500, "max pets per sweep run")
	fs.StringVar(&c.TuningFile, "tuning", "", "YAML file overriding simulation tuning")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	c.MaxConns = int32(*maxConns)

	if c.JWTKey == "" {
		return Config{}, errors.New("missing jwt signing key (-jwt-key)")
	}
	if c.StoreTimeout <= 0 || c.LockTimeout <= 0 {
		return Config{}, errors.New("store and lock timeouts must be positive")
	}
	if c.SweepWorkers < 1 {
		c.SweepWorkers = 1
	}

	t, err := LoadTuning(c.TuningFile)
	if err != nil {
		return Config{}, err
	}
	c.Tuning = t
	return c, nil
}

// LoadTuning reads embedded defaults, then overlays path if set.
// Only fields present in the file are overwritten.
func LoadTuning(path string) (lifecycle.Tuning, error) {
	var t lifecycle.Tuning
	if err := yaml.Unmarshal(defaultsYAML, &t); err != nil {
		return lifecycle.Tuning{}, fmt.Errorf("parse embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return lifecycle.Tuning{}, fmt.Errorf("read tuning %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &t); err != nil {
			return lifecycle.Tuning{}, fmt.Errorf("parse tuning %s: %w", path, err)
		}
	}
	if err := t.Validate(); err != nil {
		return lifecycle.Tuning{}, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}
