package goSession

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func BenchmarkStoreSession(b *testing.B) {
	mr, rdb := newBenchRedis(b)
	defer mr.Close()
	defer rdb.Close()

	cfg := testConfig()
	cfg.Session.MaxSessionsPerUser = 5
	m, err := New().WithConfig(cfg).WithRedis(rdb).WithLogger(discardLogger()).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	defer m.Close()

	ctx := context.Background()
	uid := uuid.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := m.StoreSession(ctx, fmt.Sprintf("sid-%d", i), &Record{UserID: uid}); err != nil {
			b.Fatalf("StoreSession failed: %v", err)
		}
	}
}

func BenchmarkValidateSession(b *testing.B) {
	mr, rdb := newBenchRedis(b)
	defer mr.Close()
	defer rdb.Close()

	m, err := New().WithConfig(testConfig()).WithRedis(rdb).WithLogger(discardLogger()).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	defer m.Close()

	ctx := context.Background()
	if err := m.StoreSession(ctx, "bench", &Record{UserID: uuid.New()}); err != nil {
		b.Fatalf("StoreSession failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.ValidateSession(ctx, "bench"); err != nil {
			b.Fatalf("ValidateSession failed: %v", err)
		}
	}
}

func BenchmarkValidateSessionFallback(b *testing.B) {
	cfg := testConfig()
	m, err := New().WithConfig(cfg).WithLogger(discardLogger()).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	defer m.Close()

	ctx := context.Background()
	if err := m.StoreSession(ctx, "bench", &Record{UserID: uuid.New()}); err != nil {
		b.Fatalf("StoreSession failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.ValidateSession(ctx, "bench"); err != nil {
			b.Fatalf("ValidateSession failed: %v", err)
		}
	}
}
