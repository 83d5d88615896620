package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"xposter/internal/transport"
)

func TestSplitText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		in    string
		limit int
		want  []string
	}{
		{name: "empty", in: "  ", limit: 10, want: nil},
		{name: "short", in: "hello", limit: 10, want: []string{"hello"}},
		{name: "hard cut", in: "abcdefghij", limit: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "newline preferred", in: "abc\ndefgh", limit: 5, want: []string{"abc", "defgh"}},
		{name: "runes not bytes", in: "ééééé", limit: 2, want: []string{"éé", "éé", "é"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := splitText(tt.in, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("splitText = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("part %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestSendAlert(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		calls []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		params := map[string]any{}
		_ = json.Unmarshal(body, &params)
		mu.Lock()
		calls = append(calls, params)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
	}))
	defer srv.Close()

	s, err := New(Config{Token: "123:abc", APIURL: srv.URL})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := s.SendAlert(context.Background(), transport.AlertTarget{ChatID: 42, ThreadID: 7}, "disk on fire"); err != nil {
		t.Fatalf("SendAlert error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0]["text"] != "disk on fire" {
		t.Fatalf("text = %v", calls[0]["text"])
	}
	if calls[0]["chat_id"] != "42" {
		t.Fatalf("chat_id = %v", calls[0]["chat_id"])
	}
}

func TestSendAlertCancelled(t *testing.T) {
	t.Parallel()
	s, err := New(Config{Token: "123:abc", APIURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SendAlert(ctx, transport.AlertTarget{ChatID: 1}, "x"); err == nil {
		t.Fatal("expected context error")
	}
}
