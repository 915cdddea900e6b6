package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"

	"rectify/internal/astctx"
	"rectify/internal/diag"
	"rectify/internal/proposal"
)

func reply(text string) map[string]any {
	return map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"content":       []map[string]any{{"type": "text", "text": text}},
		"model":         "claude-3-5-haiku-latest",
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 2},
	}
}

// server answers every request with body and counts the calls. The last
// request body is stored in seen.
func server(t *testing.T, status int, body map[string]any, calls *atomic.Int32, seen *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if seen != nil {
			data, _ := io.ReadAll(r.Body)
			seen.Store(string(data))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newScorer(t *testing.T, url string) *Anthropic {
	t.Helper()
	t.Setenv(DisableEnv, "")
	a, err := New(Config{APIKey: "test-key"}, option.WithBaseURL(url), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func sample() (*astctx.Context, proposal.Proposal) {
	c := &astctx.Context{
		Diagnostic: diag.New("E0599", diag.SevError, "no method named `lenght` found",
			diag.Location{File: "src/main.rs", Line: 3, Column: 7}),
		Scope: astctx.Surrounding{Function: &astctx.Function{Name: "main"}},
	}
	p := proposal.Proposal{
		ID:        "abc123",
		Original:  "s.lenght()",
		Corrected: "s.len()",
		Strategy:  proposal.MethodNameCorrection{Original: "lenght", Suggested: "len", Similarity: 0.61},
	}
	return c, p
}

func TestScore(t *testing.T) {
	var calls atomic.Int32
	var seen atomic.Value
	srv := server(t, http.StatusOK, reply("0.85"), &calls, &seen)
	a := newScorer(t, srv.URL)
	c, p := sample()

	got, err := a.Score(context.Background(), c, p)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got != 0.85 {
		t.Fatalf("score = %v, want 0.85", got)
	}
	body, _ := seen.Load().(string)
	for _, want := range []string{"lenght", "s.len()", "main"} {
		if !strings.Contains(body, want) {
			t.Errorf("request lacks %q", want)
		}
	}

	// cached by proposal ID
	if _, err := a.Score(context.Background(), c, p); err != nil {
		t.Fatalf("second Score: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestScoreErrors(t *testing.T) {
	c, p := sample()

	t.Run("no number", func(t *testing.T) {
		var calls atomic.Int32
		a := newScorer(t, server(t, http.StatusOK, reply("looks fine"), &calls, nil).URL)
		if _, err := a.Score(context.Background(), c, p); !errors.Is(err, ErrNoScore) {
			t.Fatalf("err = %v, want ErrNoScore", err)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		var calls atomic.Int32
		body := map[string]any{"type": "error", "error": map[string]any{"type": "rate_limit_error", "message": "slow down"}}
		a := newScorer(t, server(t, http.StatusTooManyRequests, body, &calls, nil).URL)
		_, err := a.Score(context.Background(), c, p)
		if err == nil || !strings.Contains(err.Error(), "rate limited") {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"0.7", 0.7, true},
		{" 1\n", 1, true},
		{"Score: 0.25.", 0.25, true},
		{"0", 0, true},
		{"10", 0, false},
		{"high", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseScore(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if tt.ok && got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewRespectsEnvironment(t *testing.T) {
	t.Setenv(DisableEnv, "1")
	if _, err := New(Config{APIKey: "k"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}

	t.Setenv(DisableEnv, "false")
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := New(Config{}); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestDisabled(t *testing.T) {
	for v, want := range map[string]bool{"": false, "0": false, "false": false, "1": true, "true": true, "yes": true} {
		t.Setenv(DisableEnv, v)
		if Disabled() != want {
			t.Errorf("%q = %v, want %v", v, Disabled(), want)
		}
	}
}
