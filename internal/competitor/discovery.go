// Package competitor discovers a business's main competitors by asking a
// language model for a JSON array and validating what comes back.
package competitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/model"
)

const (
	defaultCount   = 5
	defaultTimeout = 90 * time.Second
)

// Completer turns a prompt into raw model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Input describes the business whose competitors are wanted.
type Input struct {
	BusinessName string
	Description  string
	Location     string
	Website      string
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithCount sets how many competitors the prompt asks for.
func WithCount(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.count = n
		}
	}
}

// WithTimeout bounds the model call.
func WithTimeout(t time.Duration) Option {
	return func(d *Discoverer) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// Discoverer runs competitor discovery against a Completer.
type Discoverer struct {
	llm      Completer
	count    int
	timeout  time.Duration
	validate *validator.Validate
}

// New creates a Discoverer.
func New(llm Completer, opts ...Option) *Discoverer {
	d := &Discoverer{
		llm:      llm,
		count:    defaultCount,
		timeout:  defaultTimeout,
		validate: validator.New(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Discover asks the model for competitors of in and returns them in model
// order, deduplicated by URL. Every failure is a *model.DiscoveryError.
func (d *Discoverer) Discover(ctx context.Context, in Input) ([]model.Candidate, error) {
	log := zap.L().With(zap.String("business", in.BusinessName))

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	text, err := d.llm.Complete(callCtx, BuildPrompt(in, d.count))
	if err != nil {
		return nil, &model.DiscoveryError{Reason: model.DiscoveryReasonLLM, Err: err}
	}
	log.Debug("competitor: model responded",
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)

	candidates, err := ParseCandidates(text, d.validate)
	if err != nil {
		return nil, err
	}

	out := dedupeByURL(candidates)
	if dropped := len(candidates) - len(out); dropped > 0 {
		log.Info("competitor: dropped duplicate urls", zap.Int("dropped", dropped))
	}
	log.Info("competitor: discovery complete", zap.Int("competitors", len(out)))
	return out, nil
}

// BuildPrompt renders the industry-expert discovery prompt.
func BuildPrompt(in Input, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "As an industry expert, identify and describe %d main competitors for %s", count, in.BusinessName)
	if in.Website != "" {
		fmt.Fprintf(&b, " (website: %s)", in.Website)
	}
	b.WriteString(".\n")
	if in.Description != "" {
		fmt.Fprintf(&b, "The business operates in: %s.\n", in.Description)
	}
	if in.Location != "" {
		fmt.Fprintf(&b, "Prefer competitors active in or serving %s.\n", in.Location)
	}
	fmt.Fprintf(&b, `Focus on companies that offer similar products or services. For each competitor provide:
- Name: full company name
- Description: a concise description of their capabilities and how they compete with %s
- Website URL: official company website
- Products: list of main products or solutions
- Services: list of main services offered
- About: a brief statement about the company's role in the industry
- Vision: the company's vision or mission statement
- History: brief company history and relevant achievements
Avoid generic descriptions.
Format the response as a JSON array of objects with "name", "description", "url", "products", "services", "about", "vision" and "history" fields.`, in.BusinessName)
	return b.String()
}

// normalizeURL reduces a URL to host+path for duplicate detection.
func normalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimRight(u, "/")
}

func dedupeByURL(in []model.Candidate) []model.Candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]model.Candidate, 0, len(in))
	for _, c := range in {
		key := normalizeURL(c.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
