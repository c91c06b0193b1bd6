package runtime

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/template"
)

func (e *Engine) renderMessage(ctx context.Context, sc *scope, t *template.Message) error {
	var msg domain.Message
	switch t.Source {
	case template.Static:
		content, err := e.interpolate(ctx, sc, t.Content)
		if err != nil {
			return wrapFailure(t.ID, err)
		}
		msg = domain.NewMessage(t.Role, content)

	case template.UserProvided:
		answer, err := e.askUser(ctx, sc, t)
		if err != nil {
			return err
		}
		role := t.Role
		if role == "" {
			role = domain.RoleUser
		}
		msg = domain.NewMessage(role, answer)

	case template.Generated:
		model := t.Model
		if model == nil {
			model = sc.rc.Model
		}
		if model == nil {
			return &domain.ConfigurationError{TemplateID: t.ID, Err: errors.New("no model configured")}
		}
		generated, err := e.generate(ctx, sc, t.ID, model, t.Stream)
		if err != nil {
			return err
		}
		msg = generated
		if msg.Role == "" {
			msg.Role = t.Role
		}

	default:
		return &domain.ConfigurationError{TemplateID: t.ID, Err: errors.New("unknown message source " + t.Source.String())}
	}
	return e.emit(ctx, sc, t.ID, msg)
}

func (e *Engine) askUser(ctx context.Context, sc *scope, t *template.Message) (string, error) {
	if sc.rc.Interaction == nil {
		return "", &domain.ConfigurationError{TemplateID: t.ID, Err: errors.New("no user interaction configured")}
	}
	prompt, err := e.interpolate(ctx, sc, t.Content)
	if err != nil {
		return "", wrapFailure(t.ID, err)
	}
	answer, err := sc.rc.Interaction.Ask(ctx, sc.session, prompt, t.Default)
	if err != nil {
		return "", &domain.CollaboratorError{TemplateID: t.ID, Collaborator: domain.CollaboratorInteraction, Err: err}
	}
	if answer == "" {
		answer = t.Default
	}
	return answer, nil
}

// generate asks model for the next message, streaming when both the
// template and the model support it. Model failures come back as
// CollaboratorError.
func (e *Engine) generate(ctx context.Context, sc *scope, templateID string, model ports.Model, stream bool, opts ...ports.CallOption) (domain.Message, error) {
	start := time.Now()
	var (
		msg domain.Message
		err error
	)
	if sm, ok := model.(ports.StreamingModel); ok && stream {
		msg, err = e.stream(ctx, sc, templateID, sm, opts...)
	} else {
		msg, err = model.Send(ctx, sc.session, opts...)
	}
	e.emitModelCall(ctx, sc, templateID, time.Since(start), err)
	if err != nil {
		return domain.Message{}, &domain.CollaboratorError{TemplateID: templateID, Collaborator: domain.CollaboratorModel, Err: err}
	}
	if msg.Role == "" {
		msg.Role = domain.RoleAssistant
	}
	return msg, nil
}

func (e *Engine) stream(ctx context.Context, sc *scope, templateID string, model ports.StreamingModel, opts ...ports.CallOption) (domain.Message, error) {
	var (
		sb   strings.Builder
		role domain.Role
	)
	for frag, err := range model.SendStream(ctx, sc.session, opts...) {
		if err != nil {
			return domain.Message{}, err
		}
		sb.WriteString(frag.Content)
		if frag.Role != "" {
			role = frag.Role
		}
		if sc.rc.OnChunk != nil {
			sc.rc.OnChunk(ctx, templateID, frag)
		}
	}
	return domain.NewMessage(role, sb.String()), nil
}
