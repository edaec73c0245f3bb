package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds tunable settings for rendering, insights, diffs and the explain runner.
type Config struct {
	Render   RenderConfig  `mapstructure:"render"`
	Insights InsightConfig `mapstructure:"insights"`
	Diff     DiffConfig    `mapstructure:"diff"`
	Runner   RunnerConfig  `mapstructure:"runner"`
}

// RenderConfig controls the text and HTML renderers.
type RenderConfig struct {
	Color        bool `mapstructure:"color"`
	MaxDepth     int  `mapstructure:"max_depth"`
	ShowWarnings bool `mapstructure:"show_warnings"`
}

// InsightConfig defines thresholds for insight generation.
type InsightConfig struct {
	JoinChainWarning  int `mapstructure:"join_chain_warning"`
	JoinChainCritical int `mapstructure:"join_chain_critical"`
	WorkfileWarning   int `mapstructure:"workfile_warning"`
	SortWarning       int `mapstructure:"sort_warning"`
	TableScanWarning  int `mapstructure:"table_scan_warning"`
}

// DiffConfig defines limits for diff summaries.
type DiffConfig struct {
	MaxItems int `mapstructure:"max_items"`
}

// RunnerConfig defines how EXPLAIN is issued against the database.
type RunnerConfig struct {
	Schema          string        `mapstructure:"schema"`
	QueryNo         int           `mapstructure:"query_no"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ExplainTemplate string        `mapstructure:"explain_template"`
}

var (
	mu     sync.RWMutex
	active = Default()
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Render: RenderConfig{
			Color:        true,
			MaxDepth:     0,
			ShowWarnings: true,
		},
		Insights: InsightConfig{
			JoinChainWarning:  4,
			JoinChainCritical: 8,
			WorkfileWarning:   2,
			SortWarning:       3,
			TableScanWarning:  6,
		},
		Diff: DiffConfig{
			MaxItems: 8,
		},
		Runner: RunnerConfig{
			QueryNo:         1,
			ExplainTemplate: "EXPLAIN PLAN SET QUERYNO = %d FOR %s",
		},
	}
}

// Active returns the currently applied configuration.
func Active() Config {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Use replaces the active configuration.
func Use(cfg Config) {
	mu.Lock()
	active = cfg
	mu.Unlock()
}

// Apply loads configuration from the provided path (JSON, YAML or TOML, by extension)
// over the defaults. Empty path resets to default.
func Apply(path string) error {
	if path == "" {
		Use(Default())
		return nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	Use(cfg)
	return nil
}
