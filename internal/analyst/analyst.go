package analyst

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/pkg/anthropic"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1024

	// fallbackAnswer is returned when the model produces no usable text.
	fallbackAnswer = "I could not generate an answer from the current context."
)

const systemPreamble = `You are a sales pipeline analyst. Answer questions using only the dataset context below. Quote concrete numbers from the context; if the context does not contain the answer, say so plainly. Keep answers short.`

// Analyst answers questions about a dataset via the Anthropic API.
type Analyst struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// Option configures the Analyst.
type Option func(*Analyst)

// WithModel overrides the default model.
func WithModel(m string) Option {
	return func(a *Analyst) {
		if m != "" {
			a.model = m
		}
	}
}

// WithMaxTokens overrides the default response token budget.
func WithMaxTokens(n int64) Option {
	return func(a *Analyst) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// New creates an Analyst.
func New(client anthropic.Client, opts ...Option) *Analyst {
	a := &Analyst{
		client:    client,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Ask answers one question against the dataset. The dataset context rides as
// a cached system block so follow-up questions reuse it.
func (a *Analyst) Ask(ctx context.Context, ds *model.AggregateDataset, question string) (string, error) {
	if ds == nil {
		return "", eris.New("analyst: no dataset available")
	}
	if question == "" {
		return "", eris.New("analyst: empty question")
	}

	system := anthropic.BuildCachedSystemBlocks(systemPreamble + "\n\n" + BuildContext(ds, question))
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: question}},
	})
	if err != nil {
		return "", eris.Wrap(err, "analyst: ask")
	}
	resp.Usage.LogCost(a.model, "ask")

	answer := resp.Text()
	if answer == "" {
		zap.L().Warn("analyst: empty model answer", zap.String("stop_reason", resp.StopReason))
		return fallbackAnswer, nil
	}
	return answer, nil
}
