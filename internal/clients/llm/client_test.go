package llm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

type captureRecorder struct {
	mu   sync.Mutex
	recs []CallRecord
}

func (c *captureRecorder) RecordCall(_ context.Context, rec CallRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func newTestClient(rt roundTripperFunc, rec CallRecorder) Client {
	return NewClient(logger.Nop(), Config{}, &http.Client{Transport: rt}, rec)
}

func TestSendStripsInstructions(t *testing.T) {
	rec := &captureRecorder{}
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("OpenAI-Beta") != "assistants=v2" {
			t.Fatalf("missing beta header")
		}
		return jsonResponse(200, `{"id":"run_1","object":"thread.run","instructions":"very long"}`), nil
	}, rec)

	res := c.Send(context.Background(), Request{
		Phase:   "StartRun",
		Method:  "POST",
		URL:     "http://provider/v1/threads/t/runs",
		Headers: Headers("openai", Credentials{"openai": "k"}, ""),
		Body:    map[string]any{"assistant_id": "asst"},
	})
	if !res.Success {
		t.Fatalf("expected success, err=%v", res.Err)
	}
	if _, ok := res.Data["instructions"]; ok {
		t.Fatalf("instructions should be stripped")
	}
	if res.Data["id"] != "run_1" {
		t.Fatalf("id=%v", res.Data["id"])
	}
	if len(rec.recs) != 1 || rec.recs[0].Polling {
		t.Fatalf("expected one primary record, got %+v", rec.recs)
	}
}

func TestSendSoftError(t *testing.T) {
	rec := &captureRecorder{}
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"error":{"message":"bad"}}`), nil
	}, rec)

	res := c.Send(context.Background(), Request{Phase: "PostMessage", Method: "POST", URL: "http://provider/x"})
	if !res.Success || !res.SoftError {
		t.Fatalf("expected transport success with soft error, got %+v", res)
	}
	if res.StatusCode != 200 {
		t.Fatalf("caller should see real status, got %d", res.StatusCode)
	}
	if rec.recs[0].StatusCode != 500 || !rec.recs[0].SoftError {
		t.Fatalf("record should carry synthesized 500, got %+v", rec.recs[0])
	}
}

func TestSendPollingClassification(t *testing.T) {
	cases := []struct {
		status  string
		polling bool
	}{
		{"queued", true},
		{"in_progress", true},
		{"cancelling", true},
		{"completed", false},
		{"failed", false},
	}
	for _, tc := range cases {
		rec := &captureRecorder{}
		c := newTestClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"object":"thread.run","status":"`+tc.status+`"}`), nil
		}, rec)
		c.Send(context.Background(), Request{Phase: PhasePollRunStatus, Method: "GET", URL: "http://provider/x"})
		if rec.recs[0].Polling != tc.polling {
			t.Fatalf("status %s: polling=%v want %v", tc.status, rec.recs[0].Polling, tc.polling)
		}
	}
}

func TestSendFailures(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		c := newTestClient(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}, nil)
		res := c.Send(context.Background(), Request{Method: "GET", URL: "http://provider/x"})
		if res.Success || res.Err == nil {
			t.Fatalf("expected failure, got %+v", res)
		}
	})
	t.Run("non-json", func(t *testing.T) {
		c := newTestClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, `<html>`), nil
		}, nil)
		res := c.Send(context.Background(), Request{Method: "GET", URL: "http://provider/x"})
		if res.Success {
			t.Fatalf("expected failure on non-json body")
		}
	})
	t.Run("http status", func(t *testing.T) {
		c := newTestClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(503, `{"error":"down"}`), nil
		}, nil)
		res := c.Send(context.Background(), Request{Method: "GET", URL: "http://provider/x"})
		if res.Success || res.StatusCode != 503 {
			t.Fatalf("expected 503 failure, got %+v", res)
		}
		var sc interface{ HTTPStatusCode() int }
		if !errors.As(res.Err, &sc) || sc.HTTPStatusCode() != 503 {
			t.Fatalf("error should expose status code")
		}
	})
}

func TestHeaders(t *testing.T) {
	creds := Credentials{"openai": "o", "azure": "a", "anthropic": "c"}
	if h := Headers("openai", creds, ""); h["Authorization"] != "Bearer o" || h["OpenAI-Beta"] == "" {
		t.Fatalf("openai headers: %v", h)
	}
	if h := Headers("azure", creds, ""); h["api-key"] != "a" || h["Authorization"] != "" {
		t.Fatalf("azure headers: %v", h)
	}
	if h := Headers("anthropic", creds, ""); h["x-api-key"] != "c" || h["anthropic-version"] == "" {
		t.Fatalf("anthropic headers: %v", h)
	}
	if h := Headers("", creds, "text/plain"); h["Content-Type"] != "text/plain" || h["Authorization"] != "Bearer o" {
		t.Fatalf("default headers: %v", h)
	}
}
