package content

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"xposter/internal/storage"
	"xposter/internal/transport"
)

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeHistory []storage.Record

func (h fakeHistory) Recent(_ context.Context, account string, n int) ([]storage.Record, error) {
	var out []storage.Record
	for _, r := range h {
		if r.Account == account && len(out) < n {
			out = append(out, r)
		}
	}
	return out, nil
}

func profile() Profile {
	return Profile{
		Persona:    "A backend engineer who likes Go.",
		Language:   "en",
		MaxChars:   280,
		Categories: []Category{{Name: "tips", Weight: 1, Prompt: "practical Go tips"}},
	}
}

func TestPickWeightedRespectsZeroWeights(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		if got := pickWeighted(rng, []float64{0, 2, 0, 1}); got != 1 && got != 3 {
			t.Fatalf("picked zero-weight index %d", got)
		}
	}
	if got := pickWeighted(rng, []float64{0, 0}); got != -1 {
		t.Fatalf("pickWeighted(all zero) = %d, want -1", got)
	}
	if got := pickWeighted(rng, nil); got != -1 {
		t.Fatalf("pickWeighted(nil) = %d, want -1", got)
	}
}

func TestPickWeightedDistribution(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))
	counts := make([]int, 2)
	for i := 0; i < 10000; i++ {
		counts[pickWeighted(rng, []float64{3, 1})]++
	}
	// Expect roughly 75/25.
	if counts[0] < 7000 || counts[0] > 8000 {
		t.Fatalf("counts = %v, want ~7500/2500", counts)
	}
}

func TestFitLength(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "fits", in: "short", max: 10, want: "short"},
		{name: "drop hashtag", in: "Go is fun #golang", max: 10, want: "Go is fun"},
		{name: "sentence end", in: "First one. Second sentence is long", max: 15, want: "First one."},
		{name: "hard cut", in: "abcdefghijkl", max: 5, want: "abcd…"},
		{name: "japanese sentence", in: "今日は晴れ。明日は雨になりそう", max: 8, want: "今日は晴れ。"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := fitLength(tt.in, tt.max)
			if got != tt.want {
				t.Fatalf("fitLength(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if utf8.RuneCountInString(got) > tt.max {
				t.Fatalf("result longer than %d runes: %q", tt.max, got)
			}
		})
	}
}

func TestSplitThread(t *testing.T) {
	t.Parallel()
	raw := "one\n---\ntwo has -- dashes\n  ---  \n\n---\nthree"
	got := splitThread(raw)
	want := []string{"one", "two has -- dashes", "three"}
	if len(got) != len(want) {
		t.Fatalf("splitThread = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("part %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGenerateSingle(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{reply: `"Use context.Context for cancellation."`}
	hist := fakeHistory{{Account: "a", Text: "earlier post"}, {Account: "b", Text: "other account"}}
	g := NewGenerator(llm, WithRand(rand.New(rand.NewSource(1))), WithHistory(hist))

	c, err := g.Generate(context.Background(), "a", profile())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if c.IsThread || c.Category != "tips" || c.Text != "Use context.Context for cancellation." {
		t.Fatalf("content = %+v", c)
	}
	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "earlier post") || strings.Contains(prompt, "other account") {
		t.Fatalf("prompt recent section wrong:\n%s", prompt)
	}
	if !strings.Contains(prompt, "practical Go tips") || !strings.Contains(prompt, "Maximum 280") {
		t.Fatalf("prompt missing category or limit:\n%s", prompt)
	}
}

func TestGenerateThread(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{reply: "hook\n---\nbody\n---\ntakeaway"}
	p := profile()
	p.ThreadProbability = 1
	p.ThreadLength = 3
	g := NewGenerator(llm, WithRand(rand.New(rand.NewSource(1))))

	c, err := g.Generate(context.Background(), "a", p)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if !c.IsThread || len(c.ThreadTexts) != 3 || c.Text != "hook" {
		t.Fatalf("content = %+v", c)
	}
	if !strings.Contains(llm.prompts[0], "exactly 3 posts") {
		t.Fatalf("thread prompt:\n%s", llm.prompts[0])
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()
	g := NewGenerator(&fakeLLM{err: errors.New("down")})
	if _, err := g.Generate(context.Background(), "a", profile()); err == nil {
		t.Fatal("expected completer error")
	}
	p := profile()
	p.Categories = []Category{{Name: "off", Weight: 0}}
	if _, err := NewGenerator(&fakeLLM{reply: "x"}).Generate(context.Background(), "a", p); err == nil {
		t.Fatal("expected error for no selectable category")
	}
	if _, err := NewGenerator(&fakeLLM{reply: "   "}).Generate(context.Background(), "a", profile()); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestAnthropicComplete(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "k" || r.Header.Get("Anthropic-Version") == "" {
			t.Errorf("missing auth headers")
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "m" || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("request = %+v", req)
		}
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"  hello "},{"type":"text","text":"world"}],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	a, err := NewAnthropic(AnthropicConfig{APIKey: "k", APIURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatalf("NewAnthropic error: %v", err)
	}
	got, err := a.Complete(context.Background(), "hi", 0)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("Complete = %q", got)
	}
}

func TestAnthropicStatusClass(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	a, err := NewAnthropic(AnthropicConfig{APIKey: "k", APIURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.Complete(context.Background(), "hi", 0)
	if !errors.Is(err, transport.ErrRateLimited) {
		t.Fatalf("err = %v, want rate limited", err)
	}
	if !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("detail lost: %v", err)
	}
}

func TestNewAnthropicRequiresKeyAndModel(t *testing.T) {
	t.Parallel()
	if _, err := NewAnthropic(AnthropicConfig{Model: "m"}); err == nil {
		t.Fatal("expected missing key error")
	}
	if _, err := NewAnthropic(AnthropicConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected missing model error")
	}
}
