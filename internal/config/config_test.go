package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `{
		"daemon": {"id": "parley-test", "data_dir": "/tmp/parley"},
		"backend": {"base_url": "https://gen.example.com", "api_key": "k", "timeout_ms": 5000},
		"api": {"host": "127.0.0.1", "port": 9090}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Daemon.ID != "parley-test" {
		t.Errorf("unexpected daemon id %q", cfg.Daemon.ID)
	}
	if cfg.Backend.TimeoutMS != 5000 {
		t.Errorf("expected timeout 5000, got %d", cfg.Backend.TimeoutMS)
	}
	if len(cfg.Agents) != 3 {
		t.Errorf("expected default persona roster, got %d agents", len(cfg.Agents))
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"daemon": {"id": "parley", "data_dir": "/data"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.TimeoutMS != 12000 {
		t.Errorf("expected default timeout 12000, got %d", cfg.Backend.TimeoutMS)
	}
	if cfg.Backend.BaseURL != "" {
		t.Error("expected unconfigured backend by default")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	path := writeConfig(t, `{
		"daemon": {"id": "", "data_dir": ""},
		"agents": [{"id": "a", "name": "A"}, {"id": "a", "name": "Dup"}],
		"schedules": [{"schedule": "", "agent_id": "ghost", "prompt": ""}]
	}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{
		"daemon.id is required",
		"daemon.data_dir is required",
		"is duplicated",
		"schedules[0].schedule is required",
		"schedules[0].prompt is required",
		"unknown agent",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PARLEY_ID", "env-daemon")
	t.Setenv("PARLEY_DATA_DIR", "/var/parley")
	t.Setenv("PARLEY_BACKEND_URL", "https://gen.example.com")
	t.Setenv("PARLEY_API_PORT", "7070")
	t.Setenv("PARLEY_TELEGRAM_TOKEN", "tg-token")
	t.Setenv("PARLEY_TELEGRAM_ALLOW_FROM", "12, 34")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Daemon.ID != "env-daemon" {
		t.Errorf("unexpected id %q", cfg.Daemon.ID)
	}
	if cfg.API.Port != 7070 {
		t.Errorf("unexpected port %d", cfg.API.Port)
	}
	if cfg.Connectors.Telegram == nil || cfg.Connectors.Telegram.Token != "tg-token" {
		t.Fatal("telegram connector not loaded from env")
	}
	if len(cfg.Connectors.Telegram.AllowFrom) != 2 || cfg.Connectors.Telegram.AllowFrom[1] != 34 {
		t.Errorf("allow_from parsing failed: %v", cfg.Connectors.Telegram.AllowFrom)
	}
	if cfg.Connectors.Telegram.AgentID == "" {
		t.Error("expected telegram agent to default to first roster agent")
	}
}

func TestLoadFromEnvBadAllowList(t *testing.T) {
	t.Setenv("PARLEY_TELEGRAM_TOKEN", "tg-token")
	t.Setenv("PARLEY_TELEGRAM_ALLOW_FROM", "12,abc")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("expected error for malformed allow list")
	}
}
