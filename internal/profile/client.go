// Package profile resolves Minecraft player names against the MCProfile API.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://mcprofile.io"

var (
	ErrNotFound     = errors.New("player not found")
	ErrRateLimited  = errors.New("profile service rate limit reached, try again later")
	ErrBadResponse  = errors.New("invalid response from profile service")
	javaNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)
)

// JavaProfile is a resolved Java Edition account.
type JavaProfile struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
}

// BedrockProfile is a resolved Bedrock account as seen through Floodgate.
type BedrockProfile struct {
	XUID          string `json:"xuid"`
	Gamertag      string `json:"gamertag"`
	FloodgateUUID string `json:"floodgateuid"`
}

// ValidUsername checks the Java Edition name format: 3-16 letters, digits or underscores.
func ValidUsername(name string) bool {
	return javaNamePattern.MatchString(name)
}

// ValidGamertag checks the Bedrock gamertag length and rejects characters
// that cannot appear in an RCON command argument.
func ValidGamertag(tag string) bool {
	n := len([]rune(tag))
	if n < 3 || n > 16 {
		return false
	}
	return !strings.ContainsFunc(tag, func(r rune) bool {
		return r == '{' || r == '}' || unicode.IsControl(r)
	})
}

// Client talks to the MCProfile API with a client-side rate limit and an
// optional cache for successful lookups.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit allows rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithCache(cache Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 5),
		cache:      noCache{},
		logger:     slog.Default().With("component", "profile"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Java resolves a Java Edition username to its canonical name and UUID.
func (c *Client) Java(ctx context.Context, username string) (JavaProfile, error) {
	var p JavaProfile
	key := "java:" + strings.ToLower(username)
	if c.fromCache(ctx, key, &p) {
		return p, nil
	}

	if err := c.get(ctx, "/api/v1/java/username/"+url.PathEscape(username), &p); err != nil {
		return JavaProfile{}, err
	}
	if p.UUID == "" || p.Username == "" {
		return JavaProfile{}, ErrBadResponse
	}
	id, err := uuid.Parse(p.UUID)
	if err != nil {
		return JavaProfile{}, fmt.Errorf("%w: uuid %q", ErrBadResponse, p.UUID)
	}
	p.UUID = id.String()

	c.toCache(ctx, key, p)
	return p, nil
}

// Bedrock resolves a gamertag to its XUID and Floodgate UUID.
func (c *Client) Bedrock(ctx context.Context, gamertag string) (BedrockProfile, error) {
	var p BedrockProfile
	key := "bedrock:" + strings.ToLower(gamertag)
	if c.fromCache(ctx, key, &p) {
		return p, nil
	}

	if err := c.get(ctx, "/api/v1/bedrock/gamertag/"+url.PathEscape(gamertag), &p); err != nil {
		return BedrockProfile{}, err
	}
	if p.XUID == "" || p.Gamertag == "" || p.FloodgateUUID == "" {
		return BedrockProfile{}, ErrBadResponse
	}
	id, err := uuid.Parse(p.FloodgateUUID)
	if err != nil {
		return BedrockProfile{}, fmt.Errorf("%w: floodgate uuid %q", ErrBadResponse, p.FloodgateUUID)
	}
	p.FloodgateUUID = id.String()

	c.toCache(ctx, key, p)
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("profile lookup: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to profile service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("profile service returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func (c *Client) fromCache(ctx context.Context, key string, out any) bool {
	ok, err := c.cache.Get(ctx, key, out)
	if err != nil {
		c.logger.Warn("profile cache read", "key", key, "error", err)
		return false
	}
	return ok
}

func (c *Client) toCache(ctx context.Context, key string, v any) {
	if err := c.cache.Set(ctx, key, v); err != nil {
		c.logger.Warn("profile cache write", "key", key, "error", err)
	}
}
