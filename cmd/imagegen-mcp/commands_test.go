package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/entrhq/imagegen-mcp/pkg/config"
)

func TestCompact(t *testing.T) {
	got := compact(map[string]interface{}{
		"prompt": "a fox",
		"model":  "",
		"email":  "",
		"count":  0,
	})
	want := map[string]interface{}{"prompt": "a fox", "count": 0}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compact() mismatch (-want +got):\n%s", diff)
	}
}

func TestSubcommands(t *testing.T) {
	want := []string{"config", "generate", "login", "logout", "models", "serve", "status", "version"}

	var got []string
	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		got = append(got, c.Name())
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--config", "/nonexistent/config.yaml"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "elevenlabs-image-mcp v") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ELEVENLABS_PASSWORD", "hunter2")
	t.Setenv(config.EnvLogDir, filepath.Join(dir, "logs"))

	t.Run("print", func(t *testing.T) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"config"})
		defer rootCmd.SetArgs(nil)

		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("config failed: %v", err)
		}
		if strings.Contains(out.String(), "hunter2") {
			t.Error("password was printed")
		}
		if !strings.Contains(out.String(), "# logs: ") {
			t.Errorf("log directory missing from output:\n%s", out.String())
		}
	})

	t.Run("write", func(t *testing.T) {
		path := filepath.Join(dir, "imagegen.yaml")

		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"config", "--write", path})
		defer func() {
			rootCmd.SetArgs(nil)
			flagWriteConfig = ""
		}()

		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("config --write failed: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("config file not written: %v", err)
		}
		if strings.Contains(string(data), "hunter2") {
			t.Error("password was written to disk")
		}
		if !strings.Contains(out.String(), path) {
			t.Errorf("unexpected output %q", out.String())
		}
	})
}
