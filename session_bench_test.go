package goSession

import (
	"context"
	"testing"
	"time"
)

func BenchmarkAccessTokenCached(b *testing.B) {
	env := newTestEnv(b, nil)
	env.signIn(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.session.AccessToken(context.Background()); err != nil {
			b.Fatalf("access token failed: %v", err)
		}
	}
}

func BenchmarkAccessTokenCachedParallel(b *testing.B) {
	env := newTestEnv(b, nil)
	env.signIn(b)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := env.session.AccessToken(context.Background()); err != nil {
				b.Errorf("access token failed: %v", err)
				return
			}
		}
	})
}

func BenchmarkHasAnyRoleParallel(b *testing.B) {
	env := newTestEnv(b, nil)
	env.signIn(b)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if !env.session.HasAnyRole("admin", "agent") {
				b.Error("expected role check to pass")
				return
			}
		}
	})
}

func BenchmarkRefresh(b *testing.B) {
	env := newTestEnv(b, func(builder *Builder) {
		builder.config.Roles.RefetchOnRefresh = false
	})
	env.signIn(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		env.clock.Advance(26 * time.Minute)
		if _, err := env.session.AccessToken(context.Background()); err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
	}
}

func BenchmarkSignIn(b *testing.B) {
	env := newTestEnv(b, nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		env.signIn(b)
		env.session.SignOut(context.Background(), "")
	}
}
