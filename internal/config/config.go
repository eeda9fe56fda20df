package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	LLM      LLMConfig      `toml:"llm"`
	Search   SearchConfig   `toml:"search"`
	Scrape   ScrapeConfig   `toml:"scrape"`
	History  HistoryConfig  `toml:"history"`
	Observer ObserverConfig `toml:"observer"`
}

type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
}

type LLMConfig struct {
	BaseURL         string `toml:"base_url"`
	APIKey          string `toml:"api_key"`
	GeneralModel    string `toml:"general_model"`
	ResearcherModel string `toml:"researcher_model"`
	FastModel       string `toml:"fast_model"`
	RPM             int    `toml:"rpm"`
	TPM             int    `toml:"tpm"`
}

type SearchConfig struct {
	BraveAPIKey string `toml:"brave_api_key"`
	MaxDepth    int    `toml:"max_depth"`
}

type ScrapeConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	MaxImages      int `toml:"max_images"`
}

type HistoryConfig struct {
	Driver string `toml:"driver"` // "", "sqlite", "postgres"
	Path   string `toml:"path"`   // sqlite file path
	DSN    string `toml:"dsn"`    // postgres connection string
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		LLM: LLMConfig{
			BaseURL:         "https://api.openai.com/v1",
			GeneralModel:    "gpt-4o",
			ResearcherModel: "gpt-4o-mini",
			FastModel:       "gpt-4o-mini",
		},
		Search:  SearchConfig{MaxDepth: 10},
		Scrape:  ScrapeConfig{TimeoutSeconds: 8, MaxImages: 5},
		History: HistoryConfig{Driver: "sqlite", Path: "ada.db"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "ada.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("ADA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("ADA_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("ADA_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("ADA_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("ADA_GENERAL_MODEL"); v != "" {
		cfg.LLM.GeneralModel = v
	}
	if v := os.Getenv("ADA_RESEARCHER_MODEL"); v != "" {
		cfg.LLM.ResearcherModel = v
	}
	if v := os.Getenv("ADA_FAST_MODEL"); v != "" {
		cfg.LLM.FastModel = v
	}
	if v := os.Getenv("ADA_BRAVE_API_KEY"); v != "" {
		cfg.Search.BraveAPIKey = v
	}
	if v := os.Getenv("ADA_HISTORY_DRIVER"); v != "" {
		cfg.History.Driver = v
	}
	if v := os.Getenv("ADA_HISTORY_DSN"); v != "" {
		cfg.History.DSN = v
	}
	if n, err := strconv.Atoi(os.Getenv("ADA_LLM_RPM")); err == nil && n > 0 {
		cfg.LLM.RPM = n
	}
	if n, err := strconv.Atoi(os.Getenv("ADA_LLM_TPM")); err == nil && n > 0 {
		cfg.LLM.TPM = n
	}
	if v := os.Getenv("ADA_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.LLM.ResearcherModel == "" {
		cfg.LLM.ResearcherModel = cfg.LLM.GeneralModel
	}
	if cfg.LLM.FastModel == "" {
		cfg.LLM.FastModel = cfg.LLM.ResearcherModel
	}
	return cfg
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
