package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/registry"
)

// Files exposes file tools confined to one directory. Paths that escape the
// directory, including through symlinks, are rejected.
type Files struct {
	Dir string
}

type pathArgs struct {
	Path string `json:"path"`
}

type writeArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type listArgs struct {
	Path     string `json:"path"`
	MaxDepth int    `json:"max_depth"`
}

// Tools returns read_file, create_or_overwrite_file and tree_directory.
func (f Files) Tools() []domain.Tool {
	return []domain.Tool{f.ReadFile(), f.WriteFile(), f.Tree()}
}

// status builds the {"status": ...} JSON payload the file tools answer with.
// Failures are reported to the model rather than aborting the run.
func status(fields map[string]any, err error) (string, error) {
	if err != nil {
		fields = map[string]any{"status": "error", "reason": err.Error()}
	} else {
		fields["status"] = "success"
	}
	raw, merr := json.Marshal(fields)
	if merr != nil {
		return "", merr
	}
	return string(raw), nil
}

func (f Files) open() (*os.Root, error) {
	return os.OpenRoot(f.Dir)
}

func clean(p string) string {
	p = filepath.ToSlash(filepath.Clean(p))
	if p == "" {
		return "."
	}
	return p
}

func (f Files) ReadFile() domain.Tool {
	spec := domain.ToolSpec{
		Name:        "read_file",
		Description: "Read content of a specific file",
		Arguments:   []domain.Argument{{Name: "path", Type: "string", Description: "Path to the file to read", Required: true}},
	}
	return registry.Typed(spec, func(_ context.Context, a pathArgs) (string, error) {
		root, err := f.open()
		if err != nil {
			return "", err
		}
		defer root.Close()
		data, err := root.ReadFile(clean(a.Path))
		return status(map[string]any{"content": string(data)}, err)
	})
}

func (f Files) WriteFile() domain.Tool {
	spec := domain.ToolSpec{
		Name:        "create_or_overwrite_file",
		Description: "Create a new file or overwrite an existing one",
		Arguments: []domain.Argument{
			{Name: "path", Type: "string", Description: "Path where to create/overwrite the file", Required: true},
			{Name: "content", Type: "string", Description: "Content to write to the file", Required: true},
		},
	}
	return registry.Typed(spec, func(_ context.Context, a writeArgs) (string, error) {
		root, err := f.open()
		if err != nil {
			return "", err
		}
		defer root.Close()

		p := clean(a.Path)
		if dir := path.Dir(p); dir != "." {
			if err := root.MkdirAll(dir, 0o755); err != nil {
				return status(nil, err)
			}
		}
		err = root.WriteFile(p, []byte(a.Content), 0o644)
		return status(map[string]any{"message": "File written successfully: " + p}, err)
	})
}

func (f Files) Tree() domain.Tool {
	spec := domain.ToolSpec{
		Name:        "tree_directory",
		Description: "Display directory structure in a tree-like format",
		Arguments: []domain.Argument{
			{Name: "path", Type: "string", Description: "Directory to display, relative to the root"},
			{Name: "max_depth", Type: "integer", Description: "Maximum depth of directory traversal"},
		},
	}
	return registry.Typed(spec, func(_ context.Context, a listArgs) (string, error) {
		root, err := f.open()
		if err != nil {
			return "", err
		}
		defer root.Close()
		tree, err := renderTree(root.FS(), clean(a.Path), a.MaxDepth)
		return status(map[string]any{"tree": tree}, err)
	})
}

// renderTree lists dir depth-first, indenting two spaces per level. Hidden
// entries are skipped. maxDepth <= 0 means unlimited.
func renderTree(fsys fs.FS, dir string, maxDepth int) (string, error) {
	info, err := fs.Stat(fsys, dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}

	var b strings.Builder
	b.WriteString(dir + "\n")
	err = fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel := strings.TrimPrefix(p, dir+"/")
		if dir == "." {
			rel = p
		}
		depth := strings.Count(rel, "/") + 1
		if maxDepth > 0 && depth > maxDepth {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			name += "/"
		}
		b.WriteString(strings.Repeat("  ", depth) + name + "\n")
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipDir) {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
