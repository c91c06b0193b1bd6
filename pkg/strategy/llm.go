package strategy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// DefaultFilterPrompt asks for the indices of messages worth keeping.
const DefaultFilterPrompt = `Below is a conversation, one message per line, numbered from 0.
Reply with the comma-separated numbers of the messages worth keeping and nothing else.

{{ .Conversation }}`

// DefaultSummaryPrompt asks for a short summary.
const DefaultSummaryPrompt = `Summarize the following conversation in a few sentences.

{{ .Conversation }}`

type llmSquash struct {
	model  ports.Model
	prompt *template.Template
}

func newLLMSquash(model ports.Model, prompt string) (llmSquash, error) {
	tpl, err := template.New("squash").Parse(prompt)
	if err != nil {
		return llmSquash{}, fmt.Errorf("parse squash prompt: %w", err)
	}
	return llmSquash{model: model, prompt: tpl}, nil
}

func (l llmSquash) ask(ctx context.Context, msgs []domain.Message) (domain.Message, error) {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("%d %s: %s", i, m.Role, m.Content)
	}
	var sb strings.Builder
	if err := l.prompt.Execute(&sb, map[string]any{"Conversation": strings.Join(lines, "\n")}); err != nil {
		return domain.Message{}, fmt.Errorf("render squash prompt: %w", err)
	}
	req := domain.NewSession(domain.WithMessages(domain.NewMessage(domain.RoleUser, sb.String())))
	resp, err := l.model.Send(ctx, req)
	if err != nil {
		return domain.Message{}, &domain.CollaboratorError{Collaborator: domain.CollaboratorModel, Err: err}
	}
	return resp, nil
}

// LLMFilter asks model which messages to keep. The model must answer with
// comma-separated 0-based indices; out-of-range indices are ignored and an
// unparsable answer keeps every message.
func LLMFilter(model ports.Model, prompt string) (SquashFunc, error) {
	if prompt == "" {
		prompt = DefaultFilterPrompt
	}
	l, err := newLLMSquash(model, prompt)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, msgs []domain.Message) ([]domain.Message, error) {
		if len(msgs) == 0 {
			return nil, nil
		}
		resp, err := l.ask(ctx, msgs)
		if err != nil {
			return nil, err
		}
		idx, ok := parseIndices(resp.Content)
		if !ok {
			return msgs, nil
		}
		var out []domain.Message
		for _, i := range idx {
			if i >= 0 && i < len(msgs) {
				out = append(out, msgs[i])
			}
		}
		return out, nil
	}, nil
}

func parseIndices(s string) ([]int, bool) {
	var out []int
	for part := range strings.SplitSeq(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// LLMSummarize replaces the child's messages with a single assistant message
// holding the model's summary.
func LLMSummarize(model ports.Model, prompt string) (SquashFunc, error) {
	if prompt == "" {
		prompt = DefaultSummaryPrompt
	}
	l, err := newLLMSquash(model, prompt)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, msgs []domain.Message) ([]domain.Message, error) {
		if len(msgs) == 0 {
			return nil, nil
		}
		resp, err := l.ask(ctx, msgs)
		if err != nil {
			return nil, err
		}
		return []domain.Message{domain.NewMessage(domain.RoleAssistant, resp.Content)}, nil
	}, nil
}
