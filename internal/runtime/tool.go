package runtime

import (
	"context"
	"errors"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/template"
)

// renderTool performs one tool round trip: the model may request a call,
// the tool runs, and the model follows up on the result. Without a request
// only the model's answer is emitted.
func (e *Engine) renderTool(ctx context.Context, sc *scope, t *template.ToolInvocation) error {
	model := t.Model
	if model == nil {
		model = sc.rc.Model
	}
	if model == nil {
		return &domain.ConfigurationError{TemplateID: t.ID, Err: errors.New("no model configured")}
	}

	request, err := e.generate(ctx, sc, t.ID, model, false, ports.WithTools(t.Specs()...))
	if err != nil {
		return err
	}
	if err := e.emit(ctx, sc, t.ID, request); err != nil {
		return err
	}
	if request.ToolCall == nil {
		return nil
	}

	call := *request.ToolCall
	tool, ok := t.Tool(call.Name)
	if !ok {
		return &domain.UnknownToolError{TemplateID: t.ID, Tool: call.Name}
	}
	if err := schema.ValidateArgs(tool.Spec(), call.Args); err != nil {
		return &domain.RenderError{TemplateID: t.ID, Err: &domain.ValidationError{Field: call.Name, Reason: "invalid tool arguments", Err: err}}
	}

	result, err := e.execute(ctx, sc, t.ID, tool, call)
	if err != nil {
		return &domain.CollaboratorError{TemplateID: t.ID, Collaborator: domain.CollaboratorTool, Err: err}
	}

	resultMsg := domain.Message{
		Role:     domain.RoleToolResult,
		Content:  result.Content,
		Metadata: result.Metadata.Merge(map[string]any{domain.KeyToolName: call.Name, domain.KeyToolCallID: call.ID}),
	}
	if err := e.emit(ctx, sc, t.ID, resultMsg); err != nil {
		return err
	}
	if result.Terminate {
		e.logger.Info("tool requested termination", "template_id", t.ID, "tool", call.Name)
		return &domain.TerminationSignal{TemplateID: t.ID}
	}

	followUp, err := e.generate(ctx, sc, t.ID, model, false)
	if err != nil {
		return err
	}
	return e.emit(ctx, sc, t.ID, followUp)
}

func (e *Engine) execute(ctx context.Context, sc *scope, templateID string, tool domain.Tool, call domain.ToolCall) (domain.ToolResult, error) {
	if approve := sc.rc.ApproveTool; approve != nil {
		allowed, denial, err := approve(ctx, call)
		if err != nil {
			return domain.ToolResult{}, err
		}
		if !allowed {
			e.logger.Info("tool call denied", "template_id", templateID, "tool", call.Name)
			return denial, nil
		}
	}
	e.emitToolCall(ctx, sc, templateID, call)
	result, err := tool.Execute(ctx, call.Args)
	e.emitToolReturn(ctx, sc, templateID, call.Name, result, err)
	return result, err
}
