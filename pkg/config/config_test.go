package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != EnvSandbox || cfg.Storage.Backend != StorageMemory || cfg.Identity.Mode != IdentityFingerprint {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingToken) || !errors.Is(err, ErrMissingEntryPoint) {
		t.Fatalf("expected missing credential errors, got %v", err)
	}
}

func TestLoad_ReadsLegacyEnvironmentNames(t *testing.T) {
	t.Setenv("PAYABLI_ENV", "QA")
	t.Setenv("PAYABLI_API_TOKEN", "tok")
	t.Setenv("PAYABLI_ENTRY", "entry-1")
	t.Setenv("BOARDING_STORAGE_BACKEND", "redis")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.APIBaseURL() != "https://api-qa.payabli.com/api/" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL())
	}
	if cfg.Storage.Backend != StorageRedis {
		t.Fatalf("expected redis backend, got %q", cfg.Storage.Backend)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boarding.yaml")
	doc := []byte(`
environment: production
api_token: file-token
entry_point: file-entry
storage:
  backend: sql
  sql_dsn: user:pass@tcp(localhost:3306)/boarding
identity:
  mode: session
  session_secret: s3cret
`)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.HostPrefix() != "" || cfg.APIBaseURL() != "https://api.payabli.com/api/" {
		t.Fatalf("unexpected production url %q", cfg.APIBaseURL())
	}
	if !cfg.SessionMode() || cfg.Storage.SQLDSN == "" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestHostPrefixAndValidate(t *testing.T) {
	cases := map[string]string{EnvProduction: "", EnvQA: "-qa", EnvSandbox: "-sandbox", "staging": "-sandbox"}
	for env, want := range cases {
		if got := (Config{Environment: env}).HostPrefix(); got != want {
			t.Fatalf("HostPrefix(%q) = %q, want %q", env, got, want)
		}
	}

	cfg := Config{Environment: "staging", APIToken: "t", EntryPoint: "e", Storage: StorageConfig{Backend: "disk"}}
	err := cfg.Validate()
	if !errors.Is(err, ErrUnknownEnvironment) || !errors.Is(err, ErrUnknownStorage) {
		t.Fatalf("expected environment and storage errors, got %v", err)
	}

	cfg = Config{Environment: EnvSandbox, APIToken: "t", EntryPoint: "e", Storage: StorageConfig{Backend: StorageMemory}, Identity: IdentityConfig{Mode: IdentitySession}}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected missing secret, got %v", err)
	}

	if got := (Config{BaseURL: "http://127.0.0.1:9000/api"}).APIBaseURL(); got != "http://127.0.0.1:9000/api/" {
		t.Fatalf("unexpected override url %q", got)
	}
}
