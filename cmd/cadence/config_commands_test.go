package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitThenValidate(t *testing.T) {
	clearProviderEnv(t)
	target := filepath.Join(t.TempDir(), "config.toml")

	initOut := mustRunCLI(t, target, "config", "init", "--path", target)
	if !strings.Contains(initOut, "Wrote sample configuration") {
		t.Fatalf("unexpected init output:\n%s", initOut)
	}

	// The sample ships without credentials, so validation must point at the
	// missing provider key.
	if _, err := runCLI(t, target, "config", "validate"); err == nil {
		t.Fatal("expected validation to fail without an API key")
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	mustRunCLI(t, target, "config", "init", "--path", target)
	if _, err := runCLI(t, target, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init to fail without --overwrite")
	}
	mustRunCLI(t, target, "config", "init", "--path", target, "--overwrite")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	configPath := writeCLIConfig(t)

	out := mustRunCLI(t, configPath, "config", "show")
	if strings.Contains(out, `"test"`) || strings.Contains(out, "= 'test'") {
		t.Errorf("api key leaked in output:\n%s", out)
	}
	if !strings.Contains(out, "[redacted]") {
		t.Errorf("expected redacted credential marker:\n%s", out)
	}
	if !strings.Contains(out, "provider = 'openai'") && !strings.Contains(out, `provider = "openai"`) {
		t.Errorf("expected provider in output:\n%s", out)
	}
}

func TestConfigValidateReportsPath(t *testing.T) {
	configPath := writeCLIConfig(t)

	out := mustRunCLI(t, configPath, "config", "validate")
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("unexpected validate output:\n%s", out)
	}
	if !strings.Contains(out, configPath) {
		t.Errorf("validate output missing config path:\n%s", out)
	}
}
