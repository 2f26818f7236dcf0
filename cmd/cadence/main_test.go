package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"LLM_PROVIDER", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(name, "")
	}
}

func writeCLIConfig(t *testing.T) string {
	t.Helper()

	clearProviderEnv(t)
	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[llm]
provider = "openai"
openai_api_key = "test"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))

	path := filepath.Join(base, "cadence.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRunCLI(t *testing.T, configPath string, args ...string) string {
	t.Helper()

	output, err := runCLI(t, configPath, args...)
	if err != nil {
		t.Fatalf("cadence %s: %v\n%s", strings.Join(args, " "), err, output)
	}
	return output
}

func extractClientID(t *testing.T, addOutput string) string {
	t.Helper()

	for _, line := range strings.Split(addOutput, "\n") {
		if rest, ok := strings.CutPrefix(line, "Client ID: "); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("no client ID in output:\n%s", addOutput)
	return ""
}

func TestClientAddListProgress(t *testing.T) {
	configPath := writeCLIConfig(t)

	addOut := mustRunCLI(t, configPath, "client", "add", "Acme Coaching",
		"--email", "acme@example.com", "--niche", "fitness")
	if !strings.Contains(addOut, "stage 1 of 8 active") {
		t.Errorf("add output missing stage line:\n%s", addOut)
	}
	clientID := extractClientID(t, addOut)

	listOut := mustRunCLI(t, configPath, "client", "list")
	if !strings.Contains(listOut, "Acme Coaching") || !strings.Contains(listOut, clientID) {
		t.Errorf("list output missing client:\n%s", listOut)
	}

	progressOut := mustRunCLI(t, configPath, "client", "progress", clientID)
	if !strings.Contains(progressOut, "(stage 1 of 8)") {
		t.Errorf("progress header wrong:\n%s", progressOut)
	}
	if !strings.Contains(progressOut, "active") || !strings.Contains(progressOut, "locked") {
		t.Errorf("progress output missing stage statuses:\n%s", progressOut)
	}
}

func TestUnlockRejectsSkippedStage(t *testing.T) {
	configPath := writeCLIConfig(t)
	clientID := extractClientID(t, mustRunCLI(t, configPath, "client", "add", "Acme"))

	if _, err := runCLI(t, configPath, "unlock", clientID, "3"); err == nil {
		t.Fatal("expected unlock of stage 3 to fail while stage 2 is incomplete")
	}
}

func TestGenerateValidatesStageArgument(t *testing.T) {
	configPath := writeCLIConfig(t)

	if _, err := runCLI(t, configPath, "generate", "someone", "9"); err == nil {
		t.Fatal("expected stage 9 to be rejected")
	}
	if _, err := runCLI(t, configPath, "generate", "someone", "1", "6"); err == nil {
		t.Fatal("expected slot 6 to be rejected")
	}
}

func TestWebhookAddAndList(t *testing.T) {
	configPath := writeCLIConfig(t)
	clientID := extractClientID(t, mustRunCLI(t, configPath, "client", "add", "Acme"))

	addOut := mustRunCLI(t, configPath, "webhook", "add", clientID, "https://example.com/hook",
		"--events", "stage.completed,document.approved", "--secret", "s3cret")
	if !strings.Contains(addOut, "Subscription ID: ") {
		t.Fatalf("no subscription ID in output:\n%s", addOut)
	}

	listOut := mustRunCLI(t, configPath, "webhook", "list", clientID)
	if !strings.Contains(listOut, "https://example.com/hook") {
		t.Errorf("list output missing subscription URL:\n%s", listOut)
	}
	if !strings.Contains(listOut, "stage.completed") {
		t.Errorf("list output missing event filter:\n%s", listOut)
	}
}
