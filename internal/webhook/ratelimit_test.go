package webhook

import (
	"testing"
	"time"
)

func TestURLLimiterAdmitsUpToMax(t *testing.T) {
	l := NewURLLimiter(60*time.Second, 10)

	for i := 0; i < 10; i++ {
		if !l.Allow("https://a.example.com/hook") {
			t.Fatalf("admit %d rejected, want admitted", i+1)
		}
	}
	if l.Allow("https://a.example.com/hook") {
		t.Fatal("11th call admitted, want rejected")
	}
}

func TestURLLimiterIsolatesURLs(t *testing.T) {
	l := NewURLLimiter(60*time.Second, 1)

	if !l.Allow("https://a.example.com") {
		t.Fatal("first URL rejected")
	}
	if !l.Allow("https://b.example.com") {
		t.Fatal("second URL rejected, windows must be per URL")
	}
	if l.Allow("https://a.example.com") {
		t.Fatal("first URL admitted past its cap")
	}
}

func TestURLLimiterWindowSlides(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewURLLimiter(60*time.Second, 2)
	l.now = func() time.Time { return now }

	const url = "https://a.example.com"
	if !l.Allow(url) || !l.Allow(url) {
		t.Fatal("initial admits rejected")
	}
	if l.Allow(url) {
		t.Fatal("admitted past cap inside window")
	}

	// 30s later the window still covers both admits.
	now = now.Add(30 * time.Second)
	if l.Allow(url) {
		t.Fatal("admitted while window still full")
	}

	// 61s after the first admits, both have aged out.
	now = now.Add(31 * time.Second)
	if !l.Allow(url) {
		t.Fatal("rejected after window slid past old admits")
	}
}

func TestURLLimiterRejectionDoesNotConsumeSlot(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewURLLimiter(60*time.Second, 1)
	l.now = func() time.Time { return now }

	const url = "https://a.example.com"
	if !l.Allow(url) {
		t.Fatal("first admit rejected")
	}

	// Hammering while full must not extend the block.
	for i := 0; i < 5; i++ {
		now = now.Add(10 * time.Second)
		if l.Allow(url) {
			t.Fatal("admitted while window full")
		}
	}

	// 61s after the single admit, the URL is clear again even though
	// rejected calls happened in between.
	now = now.Add(11 * time.Second)
	if !l.Allow(url) {
		t.Fatal("rejected calls extended the window")
	}
}

func TestNewURLLimiterDefaults(t *testing.T) {
	l := NewURLLimiter(0, 0)
	if l.window != 60*time.Second {
		t.Fatalf("window = %v, want 60s", l.window)
	}
	if l.max != 10 {
		t.Fatalf("max = %d, want 10", l.max)
	}
}
