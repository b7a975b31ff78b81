package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/orcabase/orca/internal/tool"
)

func init() {
	tool.Register("template_manager", newTemplateManagerTool)
	tool.Register("document_assembler", newDocumentAssemblerTool)
}

// templateManagerTool lists and fetches documentation templates from the
// configured templates directory.
type templateManagerTool struct {
	name         string
	templatesDir string
}

func newTemplateManagerTool(name string, _ map[string]any, deps tool.Deps) (tool.Tool, error) {
	if deps.TemplatesDir == "" {
		return nil, fmt.Errorf("template_manager tool requires a templates directory")
	}
	return &templateManagerTool{name: name, templatesDir: deps.TemplatesDir}, nil
}

func (t *templateManagerTool) Name() string { return t.name }

func (t *templateManagerTool) Execute(_ context.Context, args map[string]any) (any, error) {
	op, _ := args["operation"].(string)
	switch op {
	case "", "list":
		entries, err := os.ReadDir(t.templatesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
		sort.Strings(names)
		return map[string]any{"templates": names}, nil

	case "get":
		name, _ := args["template_name"].(string)
		if name == "" {
			return nil, fmt.Errorf("no template_name specified")
		}
		data, err := os.ReadFile(filepath.Join(t.templatesDir, name+".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %q: %w", name, err)
		}
		var template map[string]any
		if err := json.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("template %q is not valid JSON: %w", name, err)
		}
		return template, nil

	default:
		return nil, fmt.Errorf("unknown operation %q, want list or get", op)
	}
}

// documentAssemblerTool merges drafted sections into one markdown
// document, optionally writing it to disk.
type documentAssemblerTool struct {
	name string
}

func newDocumentAssemblerTool(name string, _ map[string]any, _ tool.Deps) (tool.Tool, error) {
	return &documentAssemblerTool{name: name}, nil
}

func (t *documentAssemblerTool) Name() string { return t.name }

func (t *documentAssemblerTool) Execute(_ context.Context, args map[string]any) (any, error) {
	sections, ok := args["sections"].(map[string]any)
	if !ok || len(sections) == 0 {
		return nil, fmt.Errorf("no sections to assemble")
	}

	// Explicit order wins; otherwise section ids sort lexically.
	var order []string
	if raw, ok := args["order"].([]any); ok {
		for _, v := range raw {
			if id, ok := v.(string); ok {
				order = append(order, id)
			}
		}
	}
	if len(order) == 0 {
		for id := range sections {
			order = append(order, id)
		}
		sort.Strings(order)
	}

	var b strings.Builder
	if title, ok := args["title"].(string); ok && title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	count := 0
	for _, id := range order {
		section, ok := sections[id]
		if !ok {
			continue
		}
		text := sectionText(section)
		if text == "" {
			continue
		}
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
		count++
	}
	document := b.String()

	result := map[string]any{"document": document, "section_count": count}
	if outputPath, ok := args["output_path"].(string); ok && outputPath != "" {
		if err := os.MkdirAll(filepath.Dir(outputPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(outputPath, []byte(document), 0644); err != nil {
			return nil, fmt.Errorf("failed to write document: %w", err)
		}
		result["output_path"] = outputPath
	}
	return result, nil
}

// sectionText extracts the drafted text from a section value, which is
// either a plain string or a draft result object.
func sectionText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case map[string]any:
		if draft, ok := s["draft"].(string); ok {
			return draft
		}
		if content, ok := s["content"].(string); ok {
			return content
		}
	}
	return ""
}
