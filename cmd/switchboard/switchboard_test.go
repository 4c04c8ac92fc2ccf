package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashutoshrp06/switchboard/internal/config"
	"github.com/ashutoshrp06/switchboard/internal/journal"
	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
)

func TestInspectSystem(t *testing.T) {
	sys, err := inspectSystem(config.DefaultConfig())
	if err != nil {
		t.Fatalf("inspectSystem: %v", err)
	}

	info := systemInfo(sys)
	if info.Mode != config.ModeCapabilities {
		t.Errorf("mode = %q", info.Mode)
	}
	if len(info.Agents) != 4 || info.Agents[0].Name != "orchestrator" {
		t.Fatalf("agents = %+v", info.Agents)
	}
	if got := strings.Join(info.Agents[0].Capabilities, ","); got != "math_agent,messaging_agent,weather_agent" {
		t.Errorf("orchestrator capabilities = %s", got)
	}
	if got := strings.Join(info.Destinations, ", "); got != "team, development" {
		t.Errorf("destinations = %s", got)
	}

	// The inspection decider never reaches a model.
	if _, err := sys.Handle(context.Background(), "What is 5+10?"); !xerrorsIsInference(err) {
		t.Errorf("expected an inference failure, got %v", err)
	}
}

func xerrorsIsInference(err error) bool {
	return xerrors.CodeOf(err) == xerrors.CodeInferenceFailure
}

func TestLoadConfig_Flag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchboard.yaml")
	cfg := config.DefaultConfig()
	cfg.Orchestrator.Mode = config.ModeClassify
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })

	loaded, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if loaded.Orchestrator.Mode != config.ModeClassify {
		t.Errorf("mode = %q", loaded.Orchestrator.Mode)
	}
}

func TestCreateLogger_TUIWritesToFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	logger := createLogger("info", true)
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(home, ".switchboard", "switchboard.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log = %s", data)
	}
}

func TestRunSummary(t *testing.T) {
	run := journal.Run{
		ID:        "run-1",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Input:     strings.Repeat("a", 150),
		Mode:      config.ModeCapabilities,
		ErrorCode: xerrors.CodeLoopBudgetExceeded,
		Duration:  1234 * time.Millisecond,
	}

	got := runSummary(run)
	for _, want := range []string{"run-1", "2026-03-01 12:00:00", "LOOP_BUDGET_EXCEEDED", "1.234s", strings.Repeat("a", 100) + "..."} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if truncate("short", 10) != "short" {
		t.Error("short strings are unchanged")
	}
	if truncate("abcdef", 3) != "abc..." {
		t.Errorf("truncate = %q", truncate("abcdef", 3))
	}
}
