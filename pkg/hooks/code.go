package hooks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/tendril/pkg/adapters/process"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/template"
)

var codeBlockPattern = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```")

// CodeBlock is a fenced block found in markdown.
type CodeBlock struct {
	Lang string
	Code string
}

// ExtractCodeBlocks returns every fenced code block in markdown, in order.
func ExtractCodeBlocks(markdown string) []CodeBlock {
	var blocks []CodeBlock
	for _, m := range codeBlockPattern.FindAllStringSubmatch(markdown, -1) {
		blocks = append(blocks, CodeBlock{Lang: m[1], Code: strings.TrimSpace(m[2])})
	}
	return blocks
}

// ExtractCodeBlock stores the first code block of the last message under
// key. With a non-empty lang only blocks tagged with that language count.
// When nothing matches the key is set to nil.
func ExtractCodeBlock(key, lang string) template.Hook {
	return func(_ context.Context, s *domain.Session) (*domain.Session, error) {
		last, ok := s.LastNonControl()
		if !ok {
			return nil, errors.New("extract code block: session has no messages")
		}
		for _, b := range ExtractCodeBlocks(last.Content) {
			if lang == "" || b.Lang == lang {
				return s.WithMeta(key, b.Code), nil
			}
		}
		return s.WithMeta(key, nil), nil
	}
}

// Exec runs the command registered as tool with the snippet stored under
// codeKey passed as the "code" argument, and stores its stdout under key.
// A missing snippet is an error.
func Exec(key, codeKey, tool string, runner *process.Runner) template.Hook {
	return func(ctx context.Context, s *domain.Session) (*domain.Session, error) {
		code := s.Metadata().String(codeKey)
		if code == "" {
			return nil, fmt.Errorf("exec %s: no code under %q", tool, codeKey)
		}
		out, err := runner.Run(ctx, tool, map[string]any{"code": code})
		if err != nil {
			return nil, fmt.Errorf("exec %s: %w", tool, err)
		}
		return s.WithMeta(key, out.Stdout), nil
	}
}
