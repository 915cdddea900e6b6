// Package scoring holds optional confidence plug-ins for the proposal
// generator.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	lru "github.com/hashicorp/golang-lru/v2"

	"rectify/internal/astctx"
	"rectify/internal/proposal"
)

const (
	// DisableEnv turns the plug-in off regardless of configuration.
	DisableEnv = "RECTIFY_DISABLE_AI"

	DefaultModel     = anthropic.ModelClaude3_5HaikuLatest
	DefaultTimeout   = 20 * time.Second
	DefaultMaxTokens = 16
	defaultCacheSize = 512
)

var (
	// ErrDisabled is returned by New when DisableEnv is set.
	ErrDisabled = errors.New("scoring: disabled by " + DisableEnv)
	// ErrNoAPIKey is returned by New when no key is configured.
	ErrNoAPIKey = errors.New("scoring: no API key (set ANTHROPIC_API_KEY)")
	// ErrNoScore is returned when the reply holds no number in [0, 1].
	ErrNoScore = errors.New("scoring: reply holds no score")
)

var scorePattern = regexp.MustCompile(`\b(0(?:\.\d+)?|1(?:\.0+)?)\b`)

// Disabled reports whether DisableEnv is set to a true value.
func Disabled() bool {
	v := strings.TrimSpace(os.Getenv(DisableEnv))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}

// Config configures the Anthropic scorer.
type Config struct {
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Anthropic asks a model how likely a proposal is to fix its diagnostic.
// Replies are cached per proposal ID for the life of the scorer.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	timeout   time.Duration
	maxTokens int64
	cache     *lru.Cache[string, float64]
}

var _ proposal.Scorer = (*Anthropic)(nil)

// New returns a scorer. Extra request options are passed to the SDK client.
func New(cfg Config, opts ...option.RequestOption) (*Anthropic, error) {
	if Disabled() {
		return nil, ErrDisabled
	}
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil, ErrNoAPIKey
	}
	a := &Anthropic{
		model:     anthropic.Model(cfg.Model),
		timeout:   cfg.Timeout,
		maxTokens: int64(cfg.MaxTokens),
	}
	if a.model == "" {
		a.model = DefaultModel
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	if a.maxTokens <= 0 {
		a.maxTokens = DefaultMaxTokens
	}
	cache, err := lru.New[string, float64](defaultCacheSize)
	if err != nil {
		return nil, err
	}
	a.cache = cache
	a.client = anthropic.NewClient(append([]option.RequestOption{
		option.WithAPIKey(key),
		option.WithRequestTimeout(a.timeout),
	}, opts...)...)
	return a, nil
}

const systemPrompt = "You review automatic fixes for Rust compiler diagnostics. " +
	"Reply with a single number between 0 and 1: the probability that the replacement " +
	"fixes the diagnostic without changing the program's intent. No other text."

// Score implements proposal.Scorer.
func (a *Anthropic) Score(ctx context.Context, c *astctx.Context, p proposal.Proposal) (float64, error) {
	if p.ID != "" {
		if s, ok := a.cache.Get(p.ID); ok {
			return s, nil
		}
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt(c, p))),
		},
	})
	if err != nil {
		return 0, formatAPIError(err)
	}
	var text string
	for i := range msg.Content {
		if t, ok := msg.Content[i].AsAny().(anthropic.TextBlock); ok {
			text = t.Text
			break
		}
	}
	s, err := parseScore(text)
	if err != nil {
		return 0, err
	}
	if p.ID != "" {
		a.cache.Add(p.ID, s)
	}
	return s, nil
}

func prompt(c *astctx.Context, p proposal.Proposal) string {
	var sb strings.Builder
	if c != nil {
		fmt.Fprintf(&sb, "Diagnostic: %s\n", c.Diagnostic.String())
		if c.Scope.Function != nil {
			fmt.Fprintf(&sb, "Function: %s\n", c.Scope.Function.Name)
		}
	}
	fmt.Fprintf(&sb, "Fix: %s\n", p.Title())
	fmt.Fprintf(&sb, "Original:\n%s\n", p.Original)
	fmt.Fprintf(&sb, "Replacement:\n%s\n", p.Corrected)
	return sb.String()
}

func parseScore(text string) (float64, error) {
	m := scorePattern.FindString(strings.TrimSpace(text))
	if m == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoScore, text)
	}
	return strconv.ParseFloat(m, 64)
}

func formatAPIError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401:
			return fmt.Errorf("scoring: invalid API key: %w", err)
		case 429:
			return fmt.Errorf("scoring: rate limited: %w", err)
		case 500, 502, 503, 529:
			return fmt.Errorf("scoring: API unavailable (status %d): %w", apiErr.StatusCode, err)
		default:
			return fmt.Errorf("scoring: API error (status %d): %w", apiErr.StatusCode, err)
		}
	}
	return fmt.Errorf("scoring: request failed: %w", err)
}
