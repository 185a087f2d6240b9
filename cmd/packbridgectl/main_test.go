package main

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/packbridge/packbridge/core/backend"
	"github.com/packbridge/packbridge/core/publish/deploy"
)

func TestNewFlagSetDefaults(t *testing.T) {
	t.Setenv("PACKBRIDGE_BASE_URL", "http://manage.test")
	fs := newFlagSet("test")
	if *fs.baseURL != "http://manage.test" {
		t.Fatalf("expected base url from env, got %s", *fs.baseURL)
	}
	if *fs.token != "" {
		t.Fatalf("token flag must default empty, got %s", *fs.token)
	}
}

func TestPrintSummary(t *testing.T) {
	summary := &deploy.Summary{}
	summary.Units = []*deploy.Unit{
		{PackageID: "Acme.Tool", Status: deploy.StatusSuccess},
		{PackageID: "Beta.App", Status: deploy.StatusFailed, Error: "upload content: boom"},
	}
	summary.Success = 1
	summary.Failed = 1

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	old := os.Stdout
	os.Stdout = w
	printSummary(summary)
	_ = w.Close()
	os.Stdout = old

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "Acme.Tool") || !strings.Contains(out, "upload content: boom") {
		t.Fatalf("summary lines missing: %s", out)
	}
	if !strings.Contains(out, "1 succeeded, 1 failed, 0 skipped") {
		t.Fatalf("totals line missing: %s", out)
	}
}

func TestBuildOrchestratorTokenPrecedence(t *testing.T) {
	t.Setenv("PACKBRIDGE_TOKEN", "env-token")
	t.Setenv("PACKBRIDGE_REDIS_URL", "")
	t.Setenv("PACKBRIDGE_NATS_URL", "")
	fs := newFlagSet("test")
	fs.ParseArgs([]string{"--token", "flag-token"})

	orch, cleanup := buildOrchestrator(fs, true, "")
	defer cleanup()
	if orch.Uploader.Progress != nil {
		t.Fatalf("progress must be disabled")
	}
	client, ok := orch.API.(*backend.Client)
	if !ok {
		t.Fatalf("orchestrator not backed by the http client")
	}
	if client.Tokens != backend.StaticToken("flag-token") {
		t.Fatalf("flag token must win over the environment, got %#v", client.Tokens)
	}
}
