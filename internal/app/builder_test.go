package app

import (
	"context"
	"path/filepath"
	"testing"

	"storyreel/pkg/config"
)

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		GroqAPIKey:   "test-key",
		PexelsAPIKey: "test-key",
		DBPath:       filepath.Join(dir, "test.db"),
	}
	cfg.Storage.Backend = "local"
	cfg.Storage.LocalDir = dir
	return cfg
}

func TestBuildLocalBackend(t *testing.T) {
	dir := t.TempDir()

	runtime, err := Build(context.Background(), testConfig(t, dir))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer func() { _ = runtime.Close() }()

	if runtime.Orchestrator == nil {
		t.Fatal("orchestrator not built")
	}
	if runtime.Store == nil {
		t.Fatal("store not built")
	}
}

func TestBuildGCSRequiresBucket(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Storage.Backend = "gcs"
	cfg.GCSBucket = ""

	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatal("expected error for gcs backend without a bucket")
	}
}
