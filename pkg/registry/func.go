package registry

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/tendril/pkg/domain"
)

// ToolFunction is an untyped tool body.
type ToolFunction func(ctx context.Context, args map[string]any) (domain.ToolResult, error)

type funcTool struct {
	spec domain.ToolSpec
	fn   ToolFunction
}

func (t funcTool) Spec() domain.ToolSpec { return t.spec }

func (t funcTool) Execute(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
	return t.fn(ctx, args)
}

// Func builds a tool from spec and fn.
func Func(spec domain.ToolSpec, fn ToolFunction) domain.Tool {
	return funcTool{spec: spec, fn: fn}
}

// Typed builds a tool whose arguments are decoded into T before fn runs.
// Fields are matched by their `json` tag, and numeric strings are accepted
// for numeric fields.
func Typed[T any](spec domain.ToolSpec, fn func(ctx context.Context, args T) (string, error)) domain.Tool {
	return Func(spec, func(ctx context.Context, raw map[string]any) (domain.ToolResult, error) {
		var args T
		if err := Decode(raw, &args); err != nil {
			return domain.ToolResult{}, &domain.ValidationError{Index: -1, Field: spec.Name, Reason: "invalid arguments", Err: err}
		}
		out, err := fn(ctx, args)
		if err != nil {
			return domain.ToolResult{}, err
		}
		return domain.ToolResult{Content: out}, nil
	})
}

// Decode copies a loosely typed map into out.
func Decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	return dec.Decode(raw)
}
