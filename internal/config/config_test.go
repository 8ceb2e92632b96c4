package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "COUNTDOWN_STORE", "COUNTDOWN_KEY",
		"COUNTDOWN_DEFAULT", "COUNTDOWN_TICK", "WAITLIST_ENDPOINT",
		"WAITLIST_GRACE_PERIOD", "CORS_ALLOWED_ORIGINS", "RATE_LIMIT_RPS",
	} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.CountdownStore != "auto" {
		t.Fatalf("expected auto countdown store, got %s", cfg.CountdownStore)
	}
	if cfg.CountdownKey != "elite_timer_remaining_ms" {
		t.Fatalf("unexpected countdown key %s", cfg.CountdownKey)
	}
	if cfg.CountdownDefault != 3*time.Hour {
		t.Fatalf("expected 3h countdown default, got %s", cfg.CountdownDefault)
	}
	if cfg.CountdownTick != time.Second {
		t.Fatalf("expected 1s tick, got %s", cfg.CountdownTick)
	}
	if cfg.WaitlistEndpoint != DefaultWaitlistEndpoint {
		t.Fatalf("unexpected endpoint %s", cfg.WaitlistEndpoint)
	}
	if cfg.WaitlistGracePeriod != 5*time.Second {
		t.Fatalf("unexpected grace period %s", cfg.WaitlistGracePeriod)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 5 {
		t.Fatalf("expected default rate limit, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("COUNTDOWN_STORE", " Redis ")
	t.Setenv("COUNTDOWN_DEFAULT", "90m")
	t.Setenv("WAITLIST_GRACE_PERIOD", "2800ms")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "3")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.RedisAddr != "localhost:6379" || !cfg.RedisTLS {
		t.Fatalf("expected redis overrides, got %s tls=%v", cfg.RedisAddr, cfg.RedisTLS)
	}
	if cfg.CountdownStore != "redis" {
		t.Fatalf("expected normalized store name, got %q", cfg.CountdownStore)
	}
	if cfg.CountdownDefault != 90*time.Minute {
		t.Fatalf("expected countdown override, got %s", cfg.CountdownDefault)
	}
	if cfg.WaitlistGracePeriod != 2800*time.Millisecond {
		t.Fatalf("expected grace override, got %s", cfg.WaitlistGracePeriod)
	}
	if cfg.SessionTTL != 10*time.Minute {
		t.Fatalf("expected session ttl override, got %s", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 0.5 || cfg.RateLimitBurst != 3 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadIgnoresMalformedDurations(t *testing.T) {
	t.Setenv("COUNTDOWN_TICK", "soon")
	cfg := Load()
	if cfg.CountdownTick != time.Second {
		t.Fatalf("expected fallback tick, got %s", cfg.CountdownTick)
	}
}
