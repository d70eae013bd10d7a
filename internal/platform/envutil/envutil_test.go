package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "nope")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("got=%d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 12 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 12 {
		t.Fatalf("got=%d", got)
	}
}

func TestBoolAndDurations(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "on")
	if !Bool("ENVUTIL_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	if Bool("ENVUTIL_TEST_BOOL", false) {
		t.Fatalf("expected default false")
	}
	t.Setenv("ENVUTIL_TEST_SECS", "0")
	if got := Seconds("ENVUTIL_TEST_SECS", time.Minute); got != time.Minute {
		t.Fatalf("got=%s", got)
	}
	t.Setenv("ENVUTIL_TEST_MS", "250")
	if got := Millis("ENVUTIL_TEST_MS", time.Second); got != 250*time.Millisecond {
		t.Fatalf("got=%s", got)
	}
}

func TestFloatAndPairs(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_FLOAT", "0.25")
	if got := Float("ENVUTIL_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("got=%v", got)
	}
	t.Setenv("ENVUTIL_TEST_FLOAT", "half")
	if got := Float("ENVUTIL_TEST_FLOAT", 1); got != 1 {
		t.Fatalf("got=%v", got)
	}

	t.Setenv("ENVUTIL_TEST_PAIRS", "x-api-key=abc, broken ,=v,k=, tenant = t1")
	got := Pairs("ENVUTIL_TEST_PAIRS")
	if len(got) != 2 || got["x-api-key"] != "abc" || got["tenant"] != "t1" {
		t.Fatalf("pairs=%v", got)
	}
	t.Setenv("ENVUTIL_TEST_PAIRS", " , ")
	if got := Pairs("ENVUTIL_TEST_PAIRS"); got != nil {
		t.Fatalf("pairs=%v", got)
	}
}
