package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
)

// ErrUnavailable is returned when the provider has no usable credentials.
var ErrUnavailable = errors.New("ai provider not configured")

type IProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
}

// IGenerator produces a completion for a prompt. One call, no retries;
// retry policy belongs to the caller.
type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// IEmbedder maps text to a fixed-length vector.
type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type generator struct {
	provider IProvider
	model    string
	timeout  time.Duration
}

func NewGenerator(p IProvider, model string, timeout time.Duration) IGenerator {
	return &generator{provider: p, model: model, timeout: timeout}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	res, err := g.provider.Generate(ctx, g.model, prompt)
	if err != nil {
		return "", wrapUpstream(err)
	}
	return res, nil
}

type embedder struct {
	provider IProvider
	model    string
	timeout  time.Duration
}

func NewEmbedder(p IProvider, model string, timeout time.Duration) IEmbedder {
	return &embedder{provider: p, model: model, timeout: timeout}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	res, err := e.provider.Embed(ctx, e.model, text, taskType)
	if err != nil {
		return nil, wrapUpstream(err)
	}
	return res, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

func wrapUpstream(err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
