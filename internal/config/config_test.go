package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("RINGLINE_CONFIG", filepath.Join(t.TempDir(), "nope", "config.json"))
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.FillerDelayMS != 500 {
		t.Fatalf("filler delay = %d, want default 500", cfg.Engine.FillerDelayMS)
	}
	if cfg.Subconscious.ToolResultBudget != 100 {
		t.Fatalf("tool result budget = %d, want default 100", cfg.Subconscious.ToolResultBudget)
	}
	if cfg.Paths.CallStore == "" || cfg.Paths.Database == "" {
		t.Fatal("sqlite paths not resolved")
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"bot":{"name":"Trill"},"engine":{"maxRounds":3,"fillerDelayMs":250}}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RINGLINE_CONFIG", path)
	t.Setenv("RINGLINE_ENGINE_MAX_ROUNDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bot.Name != "Trill" {
		t.Fatalf("bot name = %q", cfg.Bot.Name)
	}
	if cfg.Engine.FillerDelayMS != 250 {
		t.Fatalf("filler delay = %d, want file value 250", cfg.Engine.FillerDelayMS)
	}
	if cfg.Engine.MaxRounds != 5 {
		t.Fatalf("max rounds = %d, want env override 5", cfg.Engine.MaxRounds)
	}
}

func TestEnvFileDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "env")
	content := "RINGLINE_TEST_KEY='from-file'\nexport RINGLINE_TEST_OTHER=\"quoted\"\n# comment\n"
	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RINGLINE_ENV_FILE", envPath)
	t.Setenv("RINGLINE_TEST_KEY", "from-process")
	os.Unsetenv("RINGLINE_TEST_OTHER")
	defer os.Unsetenv("RINGLINE_TEST_OTHER")

	LoadEnvFileCandidates()

	if got := os.Getenv("RINGLINE_TEST_KEY"); got != "from-process" {
		t.Fatalf("process env overridden: %q", got)
	}
	if got := os.Getenv("RINGLINE_TEST_OTHER"); got != "quoted" {
		t.Fatalf("quoted value = %q", got)
	}
}
