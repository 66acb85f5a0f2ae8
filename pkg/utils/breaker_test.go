package utils

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, time.Hour)
	fail := errors.New("upstream down")

	for i := 0; i < 2; i++ {
		b.Record(fail)
	}
	if b.Open() {
		t.Fatal("breaker open before threshold")
	}

	b.Record(fail)
	if !b.Open() {
		t.Fatal("breaker closed after threshold failures")
	}
	if err := b.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("Allow = %v, want ErrBreakerOpen", err)
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(3, time.Hour)
	fail := errors.New("upstream down")

	b.Record(fail)
	b.Record(fail)
	b.Record(nil)
	b.Record(fail)
	b.Record(fail)

	if b.Open() {
		t.Fatal("non-consecutive failures opened the breaker")
	}
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	b.Record(errors.New("upstream down"))

	if err := b.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("Allow = %v, want ErrBreakerOpen", err)
	}

	time.Sleep(20 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe rejected after cooldown: %v", err)
	}

	b.Record(nil)
	if b.Open() {
		t.Fatal("successful probe did not close the breaker")
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow after recovery = %v", err)
	}
}
