package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ppiankov/matmap/internal/model"
)

// settings flattens cfg into viper keys. Durations are written the way a
// config file spells them ("15s").
func settings(cfg *model.Config) map[string]any {
	return map[string]any{
		"sources.manifest":            cfg.Sources.Manifest,
		"sources.data_base":           cfg.Sources.DataBase,
		"sources.material_dictionary": cfg.Sources.Material,
		"sources.eos_dictionary":      cfg.Sources.EOS,
		"sources.thermal_dictionary":  cfg.Sources.Thermal,
		"sources.file_timeout":        cfg.Sources.FileTimeout.String(),

		"http.timeout":        cfg.HTTP.Timeout.String(),
		"http.user_agent":     cfg.HTTP.UserAgent,
		"http.max_body_bytes": cfg.HTTP.MaxBodyBytes,
		"http.max_retries":    cfg.HTTP.MaxRetries,
		"http.insecure_tls":   cfg.HTTP.InsecureTLS,
		"http.http_proxy":     cfg.HTTP.HTTPProxy,
		"http.https_proxy":    cfg.HTTP.HTTPSProxy,
		"http.no_proxy":       cfg.HTTP.NoProxy,
		"http.respect_robots": cfg.HTTP.RespectRobots,

		"cache.enabled":    cfg.Cache.Enabled,
		"cache.memory_ttl": cfg.Cache.MemoryTTL.String(),
		"cache.disk_dir":   cfg.Cache.DiskDir,
		"cache.disk_ttl":   cfg.Cache.DiskTTL.String(),

		"concurrency.workers": cfg.Concurrency.Workers,

		"rate_limiting.requests_per_second": cfg.RateLimiting.RequestsPerSecond,
		"rate_limiting.burst_size":          cfg.RateLimiting.BurstSize,

		"logging.mode":  cfg.Logging.Mode,
		"logging.level": cfg.Logging.Level,
	}
}

func setDefaults(v *viper.Viper) {
	for key, value := range settings(model.DefaultConfig()) {
		v.SetDefault(key, value)
	}
}

// settingsTree nests flat keys for YAML output
func settingsTree(cfg *model.Config) map[string]any {
	tree := make(map[string]any)
	for key, value := range settings(cfg) {
		section, name, _ := strings.Cut(key, ".")
		m, ok := tree[section].(map[string]any)
		if !ok {
			m = make(map[string]any)
			tree[section] = m
		}
		m[name] = value
	}
	return tree
}

// loadConfig resolves the effective configuration: flags, MATMAP_* env,
// config file, defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if noCache, err := rootCmd.PersistentFlags().GetBool("no-cache"); err == nil && noCache {
		cfg.Cache.Enabled = false
	}
	if cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = model.DefaultConfig().Concurrency.Workers
	}
	return cfg, nil
}
