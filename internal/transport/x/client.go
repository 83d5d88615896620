// Package x is the X (Twitter) API v2 client used to publish posts.
//
// Requests are signed with OAuth 1.0a user-context credentials and paced by a
// per-client token bucket.
package x

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"golang.org/x/time/rate"

	"xposter/internal/transport"
)

const (
	DefaultBaseURL = "https://api.twitter.com"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// Credentials are the four OAuth 1.0a keys of one account.
type Credentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

func (c Credentials) complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

type Config struct {
	Credentials Credentials
	BaseURL     string
	Timeout     time.Duration
	// RequestRate is requests per second (burst 1). <= 0 disables pacing.
	RequestRate float64
	// HTTPClient is the unsigned base client (tests); nil uses http.DefaultClient.
	HTTPClient *http.Client
}

type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

var _ transport.Platform = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if !cfg.Credentials.complete() {
		return nil, errors.New("x: incomplete credentials")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx := context.Background()
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth1.HTTPClient, cfg.HTTPClient)
	}
	oc := oauth1.NewConfig(cfg.Credentials.APIKey, cfg.Credentials.APISecret)
	hc := oc.Client(ctx, oauth1.NewToken(cfg.Credentials.AccessToken, cfg.Credentials.AccessTokenSecret))
	hc.Timeout = timeout

	var lim *rate.Limiter
	if cfg.RequestRate > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RequestRate), 1)
	}
	return &Client{http: hc, baseURL: base, limiter: lim}, nil
}

type createRequest struct {
	Text  string       `json:"text"`
	Reply *createReply `json:"reply,omitempty"`
}

type createReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type createResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type meResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

// problem is the error body shape returned by API v2.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateMessage posts text, as a reply when replyTo is non-empty.
func (c *Client) CreateMessage(ctx context.Context, text, replyTo string) (transport.Message, error) {
	body := createRequest{Text: text}
	if replyTo != "" {
		body.Reply = &createReply{InReplyToTweetID: replyTo}
	}
	var out createResponse
	if err := c.do(ctx, "create post", http.MethodPost, "/2/tweets", body, &out); err != nil {
		return transport.Message{}, err
	}
	if out.Data.ID == "" {
		return transport.Message{}, &transport.APIError{Op: "create post", Status: http.StatusOK, Detail: "response without id"}
	}
	msg := transport.Message{ID: out.Data.ID, Text: out.Data.Text, ReplyTo: replyTo}
	if msg.Text == "" {
		msg.Text = text
	}
	return msg, nil
}

// GetIdentity returns the authenticated user.
func (c *Client) GetIdentity(ctx context.Context) (transport.Identity, error) {
	var out meResponse
	if err := c.do(ctx, "get identity", http.MethodGet, "/2/users/me", nil, &out); err != nil {
		return transport.Identity{}, err
	}
	return transport.Identity{ID: out.Data.ID, Name: out.Data.Name, Username: out.Data.Username}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var rd io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("x: marshal %s: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("x: build %s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transport.APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &transport.APIError{
			Op:     op,
			Status: resp.StatusCode,
			Kind:   transport.ClassifyStatus(resp.StatusCode),
			Detail: errorDetail(raw),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &transport.APIError{Op: op, Status: resp.StatusCode, Detail: "decode response", Err: err}
	}
	return nil
}

func errorDetail(raw []byte) string {
	var p problem
	if err := json.Unmarshal(raw, &p); err == nil {
		switch {
		case p.Detail != "":
			return p.Detail
		case len(p.Errors) > 0 && p.Errors[0].Message != "":
			return p.Errors[0].Message
		case p.Title != "":
			return p.Title
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
