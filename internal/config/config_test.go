package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.History.Driver != "sqlite" || cfg.History.Path != "ada.db" {
		t.Errorf("history = %+v", cfg.History)
	}
	if cfg.Scrape.TimeoutSeconds != 8 {
		t.Errorf("scrape timeout = %d", cfg.Scrape.TimeoutSeconds)
	}
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ada.toml")
	content := `
[server]
addr = ":9090"
cors_origins = ["https://app.example"]

[llm]
base_url = "http://localhost:11434/v1"
general_model = "llama3"

[search]
brave_api_key = "bk-123"

[history]
driver = "postgres"
dsn = "postgres://localhost/ada"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://app.example" {
		t.Errorf("cors = %v", cfg.Server.CORSOrigins)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434/v1" || cfg.LLM.GeneralModel != "llama3" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Search.BraveAPIKey != "bk-123" {
		t.Errorf("brave key = %q", cfg.Search.BraveAPIKey)
	}
	if cfg.History.Driver != "postgres" {
		t.Errorf("history driver = %q", cfg.History.Driver)
	}
	// Untouched sections keep defaults.
	if cfg.Scrape.TimeoutSeconds != 8 {
		t.Errorf("scrape timeout = %d", cfg.Scrape.TimeoutSeconds)
	}
}

func TestLoad_EnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ada.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ADA_ADDR", ":7070")
	t.Setenv("ADA_LLM_API_KEY", "sk-env")
	t.Setenv("ADA_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ADA_OBSERVER_ENABLED", "1")

	cfg := Load(path)
	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q, env should win over TOML", cfg.Server.Addr)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors = %v", cfg.Server.CORSOrigins)
	}
	if !cfg.Observer.Enabled {
		t.Error("observer not enabled from env")
	}
}

func TestLoad_ModelFallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ada.toml")
	content := `
[llm]
general_model = "only-model"
researcher_model = ""
fast_model = ""
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.LLM.ResearcherModel != "only-model" || cfg.LLM.FastModel != "only-model" {
		t.Errorf("fallbacks not applied: %+v", cfg.LLM)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}
