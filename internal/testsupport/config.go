package testsupport

import (
	"path/filepath"
	"testing"

	"cardoff/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.StoreDir = filepath.Join(base, "store")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ProfilesPath = filepath.Join(base, "profiles.yaml")
	cfgVal.Router.ProbeTimeout = 1
	cfgVal.Router.MinStagingFreeMiB = 0
	cfgVal.Transfer.RetryBackoff = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDeleteOriginals enables the source deletion policy on the test config.
func WithDeleteOriginals() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cleanup.DeleteOriginals = true
	}
}

// WithProbeAddr points the router probe at an explicit address.
func WithProbeAddr(addr string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Router.ProbeAddr = addr
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
