// Package content produces post text for an account with an LLM.
package content

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"xposter/internal/storage"
	"xposter/internal/transport"
	logx "xposter/pkg/logx"
)

const (
	DefaultMaxChars      = 280
	DefaultRecentContext = 15
	minThreadLength      = 2
	maxThreadLength      = 4
)

// Content is one generated post or thread.
type Content struct {
	Text        string // the post, or the first part of a thread
	Category    string
	IsThread    bool
	ThreadTexts []string
}

// Category is a weighted topic with its instruction for the model.
type Category struct {
	Name   string
	Weight float64
	Prompt string
}

// Profile is the per-account content configuration.
type Profile struct {
	Persona           string
	Language          string
	MaxChars          int
	ThreadProbability float64
	// ThreadLength fixes the number of parts; 0 draws 2..4.
	ThreadLength  int
	RecentContext int
	Categories    []Category
}

// History supplies an account's previous posts.
type History interface {
	Recent(ctx context.Context, account string, n int) ([]storage.Record, error)
}

type Generator struct {
	llm     Completer
	history History
	log     logx.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

type Option func(*Generator)

func WithRand(r *rand.Rand) Option {
	return func(g *Generator) {
		if r != nil {
			g.rng = r
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// WithHistory enables the recent-posts section of the prompt.
func WithHistory(h History) Option {
	return func(g *Generator) { g.history = h }
}

func NewGenerator(llm Completer, opts ...Option) *Generator {
	g := &Generator{
		llm: llm,
		log: logx.Nop(),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate picks a category, decides single vs thread and asks the model.
func (g *Generator) Generate(ctx context.Context, account string, p Profile) (Content, error) {
	if g.llm == nil {
		return Content{}, errors.New("content: no completer configured")
	}
	cat, ok := g.pickCategory(p.Categories)
	if !ok {
		return Content{}, fmt.Errorf("content: account %s has no selectable category", account)
	}
	maxChars := p.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	recent := g.recentTexts(ctx, account, p.RecentContext)
	threadLen := g.threadLength(p)

	log := g.log.With(logx.String("account", account), logx.String("category", cat.Name))
	if threadLen > 0 {
		raw, err := g.llm.Complete(ctx, threadPrompt(p, cat, maxChars, threadLen, recent), 0)
		if err != nil {
			log.Warn("content generation failed", logx.String("class", transport.Class(err)), logx.Err(err))
			return Content{}, fmt.Errorf("content: generate thread: %w", err)
		}
		parts := splitThread(raw)
		for i := range parts {
			parts[i] = fitLength(parts[i], maxChars)
		}
		if len(parts) == 0 {
			return Content{}, errors.New("content: model returned an empty thread")
		}
		log.Debug("thread generated", logx.Int("parts", len(parts)), logx.Int("requested", threadLen))
		return Content{Text: parts[0], Category: cat.Name, IsThread: true, ThreadTexts: parts}, nil
	}

	raw, err := g.llm.Complete(ctx, singlePrompt(p, cat, maxChars, recent), 0)
	if err != nil {
		log.Warn("content generation failed", logx.String("class", transport.Class(err)), logx.Err(err))
		return Content{}, fmt.Errorf("content: generate post: %w", err)
	}
	text := fitLength(stripQuotes(raw), maxChars)
	if text == "" {
		return Content{}, errors.New("content: model returned empty text")
	}
	log.Debug("post generated", logx.Int("chars", len([]rune(text))))
	return Content{Text: text, Category: cat.Name}, nil
}

func (g *Generator) pickCategory(cats []Category) (Category, bool) {
	weights := make([]float64, len(cats))
	for i, c := range cats {
		weights[i] = c.Weight
	}
	g.mu.Lock()
	i := pickWeighted(g.rng, weights)
	g.mu.Unlock()
	if i < 0 {
		return Category{}, false
	}
	return cats[i], true
}

// threadLength returns 0 for a single post.
func (g *Generator) threadLength(p Profile) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p.ThreadProbability <= 0 || g.rng.Float64() >= p.ThreadProbability {
		return 0
	}
	if p.ThreadLength >= minThreadLength {
		return p.ThreadLength
	}
	return minThreadLength + g.rng.Intn(maxThreadLength-minThreadLength+1)
}

func (g *Generator) recentTexts(ctx context.Context, account string, n int) []string {
	if g.history == nil || n < 0 {
		return nil
	}
	if n == 0 {
		n = DefaultRecentContext
	}
	recs, err := g.history.Recent(ctx, account, n)
	if err != nil {
		g.log.Warn("history unavailable for prompt", logx.String("account", account), logx.Err(err))
		return nil
	}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		if t := strings.TrimSpace(r.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"「", "」"}} {
		if len(s) > len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}
