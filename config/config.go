package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/host"
	"github.com/wippyai/thunk-runtime/thunk"
)

// hclFile is the decoding target. Pointer fields distinguish "absent" from
// an explicit zero.
type hclFile struct {
	Capacity       *int    `hcl:"capacity,optional"`
	Strategy       *string `hcl:"strategy,optional"`
	StubParams     *int    `hcl:"stub_params,optional"`
	StubResults    *int    `hcl:"stub_results,optional"`
	EntryBase      *int    `hcl:"entry_base,optional"`
	EntryStride    *int    `hcl:"entry_stride,optional"`
	GoroutineLocal *bool   `hcl:"goroutine_local,optional"`
	ModuleName     *string `hcl:"module_name,optional"`
	TableModule    *string `hcl:"table_module,optional"`
	CallerModule   *string `hcl:"caller_module,optional"`
	LogLevel       *string `hcl:"log_level,optional"`
}

// Config describes how to build a pool and bind it to wazero.
type Config struct {
	Capacity       int
	Strategy       string
	StubParams     int
	StubResults    int
	EntryBase      int
	EntryStride    int
	GoroutineLocal bool
	ModuleName     string
	TableModule    string
	CallerModule   string
	LogLevel       string
}

// Default returns the configuration matching thunk.New and host defaults.
func Default() *Config {
	stubs := thunk.DefaultStubConvention()
	layout := thunk.DefaultLayout()
	return &Config{
		Capacity:     thunk.DefaultCapacity,
		Strategy:     thunk.RoundRobin.String(),
		StubParams:   stubs.Params,
		StubResults:  stubs.Results,
		EntryBase:    int(layout.Base),
		EntryStride:  int(layout.Stride),
		ModuleName:   host.DefaultModuleName,
		TableModule:  host.DefaultTableModuleName,
		CallerModule: host.DefaultCallerModuleName,
		LogLevel:     "info",
	}
}

// Load reads an HCL configuration file. Unset attributes keep their defaults.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config(fmt.Sprintf("read %s", path), err)
	}
	return Parse(src, path)
}

// Parse decodes HCL source. filename is used in diagnostics only.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Config(fmt.Sprintf("parse %s", filename), diags)
	}

	var raw hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &raw); diags.HasErrors() {
		return nil, errors.Config(fmt.Sprintf("decode %s", filename), diags)
	}

	cfg := Default()
	setInt(&cfg.Capacity, raw.Capacity)
	setString(&cfg.Strategy, raw.Strategy)
	setInt(&cfg.StubParams, raw.StubParams)
	setInt(&cfg.StubResults, raw.StubResults)
	setInt(&cfg.EntryBase, raw.EntryBase)
	setInt(&cfg.EntryStride, raw.EntryStride)
	if raw.GoroutineLocal != nil {
		cfg.GoroutineLocal = *raw.GoroutineLocal
	}
	setString(&cfg.ModuleName, raw.ModuleName)
	setString(&cfg.TableModule, raw.TableModule)
	setString(&cfg.CallerModule, raw.CallerModule)
	setString(&cfg.LogLevel, raw.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks values that thunk.New cannot check itself.
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.Config(fmt.Sprintf("capacity must be positive, got %d", c.Capacity), nil)
	}
	if c.StubParams < 0 || c.StubResults < 0 {
		return errors.Config("stub_params and stub_results cannot be negative", nil)
	}
	if c.EntryBase < 0 {
		return errors.Config(fmt.Sprintf("entry_base cannot be negative, got %d", c.EntryBase), nil)
	}
	if c.EntryStride <= 0 {
		return errors.Config(fmt.Sprintf("entry_stride must be positive, got %d", c.EntryStride), nil)
	}
	if _, err := thunk.ParseStrategy(c.Strategy); err != nil {
		return errors.Config("strategy", err)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Config("log_level", err)
	}
	return nil
}

// PoolOptions converts the configuration to thunk options.
func (c *Config) PoolOptions() ([]thunk.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	strategy, _ := thunk.ParseStrategy(c.Strategy)
	return []thunk.Option{
		thunk.WithCapacity(c.Capacity),
		thunk.WithStrategy(strategy),
		thunk.WithStubConvention(thunk.StubConvention{Params: c.StubParams, Results: c.StubResults}),
		thunk.WithLayout(thunk.Layout{Base: uintptr(c.EntryBase), Stride: uintptr(c.EntryStride)}),
		thunk.WithGoroutineLocal(c.GoroutineLocal),
	}, nil
}

// HostOptions converts the configuration to host options.
func (c *Config) HostOptions() []host.Option {
	return []host.Option{
		host.WithModuleName(c.ModuleName),
		host.WithTableModuleName(c.TableModule),
		host.WithCallerModuleName(c.CallerModule),
	}
}

// Logger builds a console logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Config("log_level", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	return zc.Build()
}
