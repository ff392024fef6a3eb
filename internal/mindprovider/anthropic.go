package mindprovider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultModel   = "claude-3-5-haiku-20241022"
	defaultMaxRetries = 3
	initialBackoff    = 1 * time.Second
)

// ErrAPIKeyRequired is returned when NewAnthropicProvider has neither an
// explicit key nor ANTHROPIC_API_KEY in the environment.
var ErrAPIKeyRequired = errors.New("mindprovider: ANTHROPIC_API_KEY required")

// AnthropicProvider shapes a (schemaFilename, prompt, tag) call into a single
// non-streaming Anthropic message request and parses the response's first
// text block as the CallResult.Obj JSON payload. It never appears behind the
// Provider interface used by core WhyTrace tests -- only production wiring
// constructs one.
type AnthropicProvider struct {
	client     anthropic.Client
	model      anthropic.Model
	maxRetries int
	backoff    time.Duration
}

// NewAnthropicProvider builds a provider using apiKey, or the
// ANTHROPIC_API_KEY environment variable when apiKey is empty (the env var
// always wins when both are set, matching the teacher's precedence).
func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if model == "" {
		model = defaultModel
	}
	return &AnthropicProvider{
		client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:      anthropic.Model(model),
		maxRetries: defaultMaxRetries,
		backoff:    initialBackoff,
	}, nil
}

// Call sends prompt as a single user message and returns the first text
// block's content as Obj. schemaFilename and tag are folded into the prompt
// wrapper so the model knows which structured schema to honor; this package
// does not itself validate the response against that schema -- callers
// (WhyTrace) are responsible for unmarshaling Obj into their expected shape.
func (p *AnthropicProvider) Call(ctx context.Context, schemaFilename, prompt, tag string) (CallResult, error) {
	wrapped := fmt.Sprintf("[schema=%s tag=%s]\n%s", schemaFilename, tag, prompt)
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(wrapped)),
		},
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := p.backoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return CallResult{}, ctx.Err()
			}
		}

		message, err := p.client.Messages.New(ctx, params)
		if err == nil {
			if len(message.Content) == 0 {
				return CallResult{}, fmt.Errorf("mindprovider: empty response for tag %q", tag)
			}
			content := message.Content[0]
			if content.Type != "text" {
				return CallResult{}, fmt.Errorf("mindprovider: unexpected content type %q for tag %q", content.Type, tag)
			}
			return CallResult{Obj: []byte(content.Text), TranscriptPath: ""}, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return CallResult{}, ctx.Err()
		}
		if !isRetryable(err) {
			return CallResult{}, fmt.Errorf("mindprovider: non-retryable call error: %w", err)
		}
	}

	return CallResult{}, fmt.Errorf("mindprovider: failed after %d attempts: %w", p.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
