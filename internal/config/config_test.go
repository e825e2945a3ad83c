package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_PORT", "K8S_HOST", "K8S_TOKEN", "K8S_TOKEN_PATH", "JOBS_NAMESPACE", "TEMPLATE_PATH",
		"K8S_INSECURE_SKIP_VERIFY", "BREAKER_MAX_FAILURES", "BREAKER_INTERVAL", "BREAKER_TIMEOUT",
		"TRANSPORT_RETRIES", "REQUEST_TIMEOUT", "DATABASE_URL", "LOKI_URL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.JobsNamespace != "default" {
		t.Errorf("JobsNamespace = %q", cfg.JobsNamespace)
	}
	if cfg.K8sTokenPath != "/etc/kubernetes/apikey/token" {
		t.Errorf("K8sTokenPath = %q", cfg.K8sTokenPath)
	}
	if cfg.TemplatePath != DefaultTemplatePath {
		t.Errorf("TemplatePath = %q", cfg.TemplatePath)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should default to true")
	}
	if cfg.BreakerMaxFailures != 5 || cfg.BreakerTimeout != 10*time.Second || cfg.BreakerInterval != time.Minute {
		t.Errorf("unexpected breaker defaults: %+v", cfg)
	}
	if cfg.TransportRetries != 0 {
		t.Errorf("TransportRetries = %d", cfg.TransportRetries)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JOBS_NAMESPACE", "builds")
	t.Setenv("K8S_INSECURE_SKIP_VERIFY", "false")
	t.Setenv("BREAKER_MAX_FAILURES", "3")
	t.Setenv("BREAKER_TIMEOUT", "500ms")
	t.Setenv("TRANSPORT_RETRIES", "2")

	cfg := Load()
	if cfg.JobsNamespace != "builds" {
		t.Errorf("JobsNamespace = %q", cfg.JobsNamespace)
	}
	if cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should be false")
	}
	if cfg.BreakerMaxFailures != 3 {
		t.Errorf("BreakerMaxFailures = %d", cfg.BreakerMaxFailures)
	}
	if cfg.BreakerTimeout != 500*time.Millisecond {
		t.Errorf("BreakerTimeout = %v", cfg.BreakerTimeout)
	}
	if cfg.TransportRetries != 2 {
		t.Errorf("TransportRetries = %d", cfg.TransportRetries)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BREAKER_MAX_FAILURES", "lots")
	t.Setenv("BREAKER_TIMEOUT", "-1s")
	t.Setenv("K8S_INSECURE_SKIP_VERIFY", "maybe")

	cfg := Load()
	if cfg.BreakerMaxFailures != 5 {
		t.Errorf("BreakerMaxFailures = %d", cfg.BreakerMaxFailures)
	}
	if cfg.BreakerTimeout != 10*time.Second {
		t.Errorf("BreakerTimeout = %v", cfg.BreakerTimeout)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should fall back to true")
	}
}
