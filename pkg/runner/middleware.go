package runner

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// ToolInterceptor is consulted before a tool runs. It returns true to let
// the call proceed; otherwise the returned result is recorded in place of
// the tool's output.
type ToolInterceptor func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error)

// MultiInterceptor chains interceptors. The first denial wins.
func MultiInterceptor(interceptors ...ToolInterceptor) ToolInterceptor {
	return func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		for _, interceptor := range interceptors {
			allowed, result, err := interceptor(ctx, call)
			if err != nil {
				return false, domain.ToolResult{}, err
			}
			if !allowed {
				return false, result, nil
			}
		}
		return true, domain.ToolResult{}, nil
	}
}

// ConfirmationMiddleware asks the user through handler before every call.
// Only "y" or "yes" approves.
func ConfirmationMiddleware(handler IOHandler) ToolInterceptor {
	return func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		notice := fmt.Sprintf("Tool Request: '%s' (ID: %s)\nArgs: %v", call.Name, call.ID, call.Args)
		if err := handler.SystemOutput(ctx, notice); err != nil {
			return false, domain.ToolResult{}, err
		}
		input, err := handler.Input(ctx, "Allow execution? [y/N]", "")
		if err != nil {
			return false, domain.ToolResult{}, err
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true, domain.ToolResult{}, nil
		}
		return false, denied(call, "user denied execution"), nil
	}
}

// AllowListMiddleware permits only the named tools.
func AllowListMiddleware(names ...string) ToolInterceptor {
	return func(_ context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		if slices.Contains(names, call.Name) {
			return true, domain.ToolResult{}, nil
		}
		return false, denied(call, "tool is not allowed"), nil
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() ToolInterceptor {
	return func(context.Context, domain.ToolCall) (bool, domain.ToolResult, error) {
		return true, domain.ToolResult{}, nil
	}
}

func denied(call domain.ToolCall, reason string) domain.ToolResult {
	return domain.ToolResult{
		Content:  fmt.Sprintf("Tool %q was not executed: %s.", call.Name, reason),
		Metadata: domain.Metadata{"denied": true},
	}
}
