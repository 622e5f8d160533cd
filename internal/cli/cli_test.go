package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCmd_Version(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"--version"})

	buf := &strings.Builder{}
	cmd.SetOut(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), Version) {
		t.Errorf("expected version output to contain %q, got %q", Version, buf.String())
	}
}

func TestRootCmd_Help(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"--help"})

	buf := &strings.Builder{}
	cmd.SetOut(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "diagsink") {
		t.Error("expected help output to mention diagsink")
	}
	for _, sub := range []string{"run", "check"} {
		if !strings.Contains(output, sub) {
			t.Errorf("expected help output to list %q subcommand", sub)
		}
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "diagsink.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckCmd_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "version: 1\nsink:\n  base_name: bench.out\n")

	cmd := rootCmd()
	cmd.SetArgs([]string{"check", "--config", path})

	buf := &strings.Builder{}
	cmd.SetOut(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "config ok") {
		t.Errorf("expected 'config ok', got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "bench.out") {
		t.Errorf("expected base name in summary, got %q", buf.String())
	}
}

func TestCheckCmd_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "version: 1\nlogging:\n  format: xml\n")

	cmd := rootCmd()
	cmd.SetArgs([]string{"check", "--config", path})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestCheckCmd_MissingConfigFlag(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"check"})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when --config is omitted")
	}
}

func TestRunCmd_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	remoteDir := filepath.Join(dir, "remote")
	cfgPath := writeConfig(t, dir, `version: 1
sink:
  dir: out
  base_name: bench.out
  max_file_bytes: 1000
remote:
  local_dir: `+remoteDir+`
`)
	inputPath := filepath.Join(dir, "input.txt")
	input := "read;{\"ms\":1.2}\nwrite;{\"ms\":3.4}\n"
	if err := os.WriteFile(inputPath, []byte(input), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := rootCmd()
	cmd.SetArgs([]string{"run", "--config", cfgPath, "--input", inputPath})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Records landed in the local segment.
	data, err := os.ReadFile(filepath.Join(dir, "out", "bench.out"))
	if err != nil {
		t.Fatalf("segment file missing: %v", err)
	}
	if string(data) != input {
		t.Errorf("segment content = %q, want %q", data, input)
	}

	// The drained segment was shipped to the local object store.
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	uploaded := filepath.Join(remoteDir, host+"-"+host+"-0.out")
	if _, err := os.Stat(uploaded); err != nil {
		t.Errorf("expected uploaded object %s: %v", uploaded, err)
	}
}
