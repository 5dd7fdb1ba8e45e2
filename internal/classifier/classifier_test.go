package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeFuzzy struct {
	kind  Kind
	err   error
	block bool
	calls int
}

func (f *fakeFuzzy) Classify(ctx context.Context, text string) (Kind, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return Unrecognized, ctx.Err()
	}
	return f.kind, f.err
}

func TestExact(t *testing.T) {
	c := New("התחלה", nil, 0, zerolog.Nop())

	tests := []struct {
		in   string
		want Intent
	}{
		{"התחלה", Intent{Kind: Reset}},
		{"  התחלה  ", Intent{Kind: Reset}},
		{"1", Intent{Kind: Digit, N: 1}},
		{"12", Intent{Kind: Digit, N: 12}},
		{"כן", Intent{Kind: Yes}},
		{"מגיע", Intent{Kind: Yes}},
		{"YES", Intent{Kind: Yes}},
		{"לא", Intent{Kind: No}},
		{"לא מגיע", Intent{Kind: No}},
		{"אולי", Intent{Kind: Maybe}},
		{"maybe", Intent{Kind: Maybe}},
		{"", Intent{Kind: Unrecognized}},
		{"3 people", Intent{Kind: Unrecognized}},
		{"-2", Intent{Kind: Unrecognized}},
		{"מגיא", Intent{Kind: Unrecognized}},
	}
	for _, tt := range tests {
		if got := c.Exact(tt.in); got != tt.want {
			t.Fatalf("Exact(%q): got=%+v want=%+v", tt.in, got, tt.want)
		}
	}
}

func TestExactHugeNumberIsOutOfRangeDigit(t *testing.T) {
	c := New("reset", nil, 0, zerolog.Nop())
	got := c.Exact("99999999999999999999999")
	if got.Kind != Digit || got.N != math.MaxInt {
		t.Fatalf("got=%+v", got)
	}
}

func TestMenuChoice(t *testing.T) {
	tests := []struct {
		in   Intent
		want Kind
	}{
		{Intent{Kind: Digit, N: 1}, Yes},
		{Intent{Kind: Digit, N: 2}, No},
		{Intent{Kind: Digit, N: 3}, Maybe},
		{Intent{Kind: Digit, N: 4}, Unrecognized},
		{Intent{Kind: Reset}, Reset},
		{Intent{Kind: Maybe}, Maybe},
	}
	for _, tt := range tests {
		if got := tt.in.MenuChoice().Kind; got != tt.want {
			t.Fatalf("MenuChoice(%+v): got=%v want=%v", tt.in, got, tt.want)
		}
	}
}

func TestClassifyFallsBackToFuzzy(t *testing.T) {
	fuzzy := &fakeFuzzy{kind: Yes}
	c := New("התחלה", fuzzy, time.Second, zerolog.Nop())

	if got := c.Classify(context.Background(), "מגיא"); got.Kind != Yes {
		t.Fatalf("got=%v want=yes", got.Kind)
	}
	if got := c.Classify(context.Background(), "כן"); got.Kind != Yes || fuzzy.calls != 1 {
		t.Fatalf("exact match must not call fuzzy: kind=%v calls=%d", got.Kind, fuzzy.calls)
	}
}

func TestClassifyFuzzyFailuresAreUnrecognized(t *testing.T) {
	tests := []struct {
		name  string
		fuzzy *fakeFuzzy
	}{
		{"error", &fakeFuzzy{err: errors.New("connection refused")}},
		{"timeout", &fakeFuzzy{block: true}},
		{"non answer", &fakeFuzzy{kind: Reset}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("התחלה", tt.fuzzy, 20*time.Millisecond, zerolog.Nop())
			if got := c.Classify(context.Background(), "blah"); got.Kind != Unrecognized {
				t.Fatalf("got=%v want=unrecognized", got.Kind)
			}
		})
	}
}

func TestClassifyWithoutFuzzy(t *testing.T) {
	c := New("התחלה", nil, 0, zerolog.Nop())
	if got := c.Classify(context.Background(), "blah"); got.Kind != Unrecognized {
		t.Fatalf("got=%v want=unrecognized", got.Kind)
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"כן", Yes},
		{" \"לא\". ", No},
		{"אולי\n", Maybe},
		{"Yes", Yes},
		{"no.", No},
		{"I think yes", Unrecognized},
		{"", Unrecognized},
	}
	for _, tt := range tests {
		if got := parseAnswer(tt.in); got != tt.want {
			t.Fatalf("parseAnswer(%q): got=%v want=%v", tt.in, got, tt.want)
		}
	}
}

func TestLLMClassify(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "mistral",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "אולי"}}]
		}`))
	}))
	defer srv.Close()

	llm := NewLLM(LLMConfig{BaseURL: srv.URL + "/v1/", APIKey: "test", Model: "mistral", Timeout: time.Second})
	kind, err := llm.Classify(context.Background(), "אוליי")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if kind != Maybe {
		t.Fatalf("kind: got=%v want=maybe", kind)
	}
	if gotModel != "mistral" {
		t.Fatalf("model: got=%q", gotModel)
	}
}

func TestLLMClassifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	llm := NewLLM(LLMConfig{BaseURL: srv.URL + "/v1/", APIKey: "test", Model: "mistral", Timeout: time.Second})
	if _, err := llm.Classify(context.Background(), "hmm"); err == nil {
		t.Fatalf("expected error")
	}
}
