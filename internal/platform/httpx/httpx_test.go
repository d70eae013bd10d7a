package httpx

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), true},
		{"429", statusErr(429), true},
		{"503", statusErr(503), true},
		{"400", statusErr(400), false},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"plain", errors.New("bad json"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: got=%v want=%v", tc.name, got, tc.want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("  abc  ", 10); got != "abc" {
		t.Fatalf("got=%q", got)
	}
	if got := Preview("abcdef", 3); got != "abc...(truncated)" {
		t.Fatalf("got=%q", got)
	}
}
