// Package docgen expands a documentation template into an executable
// DAG definition: fixed codebase preprocessing, one drafting node per
// top-level section, and a fan-in assembly tail.
package docgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/dag"
)

// Section is one section of a documentation template. Subsections are
// folded into their parent's draft; only top-level sections fan out.
type Section struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Subsections []Section `json:"subsections,omitempty"`
}

// Template describes the document to generate.
type Template struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Sections    []Section `json:"sections"`
}

// LoadTemplate reads and validates a template file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidDescriptor, path, err)
	}
	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidDescriptor, path, err)
	}
	if tpl.Name == "" {
		return nil, fmt.Errorf("%w: %s: name is required", core.ErrInvalidDescriptor, path)
	}
	if len(tpl.Sections) == 0 {
		return nil, fmt.Errorf("%w: %s: at least one section is required", core.ErrInvalidDescriptor, path)
	}
	return &tpl, nil
}

var numericPrefixRe = regexp.MustCompile(`^\d+[.)]`)

// specialH1 names section ids that are top-level regardless of shape.
var specialH1 = map[string]struct{}{
	"executive_summary": {},
	"conclusion":        {},
	"introduction":      {},
}

func isH1(s Section) bool {
	if numericPrefixRe.MatchString(s.Title) {
		return true
	}
	if _, ok := specialH1[s.ID]; ok {
		return true
	}
	return len(s.Subsections) == 0
}

// TopLevelSections classifies the template's sections. When no section
// qualifies as top-level, every section does.
func TopLevelSections(tpl *Template) []Section {
	var out []Section
	for _, s := range tpl.Sections {
		if isH1(s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return tpl.Sections
	}
	return out
}

// sectionScope folds a section's description and subsection titles into
// the drafting scope text.
func sectionScope(s Section) string {
	scope := s.Description
	for _, sub := range s.Subsections {
		if scope != "" {
			scope += "; "
		}
		scope += "covers " + sub.Title
	}
	return scope
}

// GenerateDocumentationDAG expands the template into a definition: a
// fixed scan → parse → summarize chain, a draft node per top-level
// section, then assembly and the final write.
func GenerateDocumentationDAG(tpl *Template, dagID string) (*dag.Definition, error) {
	if dagID == "" {
		return nil, fmt.Errorf("%w: dag_id is required", core.ErrInvalidGraph)
	}
	sections := TopLevelSections(tpl)

	def := &dag.Definition{
		DagID:       dagID,
		Name:        "Documentation: " + tpl.Name,
		Description: tpl.Description,
		Parameters: map[string]dag.Parameter{
			"codebase_path": {
				Description: "Root of the codebase to document",
				Required:    true,
				Type:        "string",
			},
			"output_path": {
				Description: "Where the finished document is written",
				Type:        "string",
				Default:     "docs/" + dagID + ".md",
			},
			"template_name": {
				Description: "Template the DAG was generated from",
				Type:        "string",
				Default:     tpl.Name,
			},
			"metadata": {
				Description: "Free-form metadata merged into the document front matter",
				Type:        "object",
			},
		},
		Nodes: []dag.NodeDef{
			{
				NodeID:   "scan_codebase",
				NodeType: string(core.KindTool),
				Config: map[string]any{
					"tool_name": "codebase_scanner",
					"input":     map[string]any{"path": "{params.codebase_path}"},
				},
			},
			{
				NodeID:   "parse_all_files",
				NodeType: string(core.KindTool),
				Config: map[string]any{
					"tool_name": "file_parser",
					"input":     map[string]any{"files": "{scan_codebase.result.files}"},
				},
				Dependencies: []string{"scan_codebase"},
			},
			{
				NodeID:   "generate_file_summaries",
				NodeType: string(core.KindTool),
				Config: map[string]any{
					"tool_name": "llm_summarization",
					"input": map[string]any{
						"content":   "{parse_all_files.result.content}",
						"max_words": 500,
					},
				},
				Dependencies: []string{"parse_all_files"},
			},
		},
	}

	assembled := map[string]any{}
	var order []any
	var draftIDs []string
	for _, s := range sections {
		draftID := "draft_" + s.ID
		draftIDs = append(draftIDs, draftID)
		order = append(order, s.ID)
		assembled[s.ID] = fmt.Sprintf("{%s.result}", draftID)

		def.Nodes = append(def.Nodes, dag.NodeDef{
			NodeID:   draftID,
			NodeType: string(core.KindTool),
			Config: map[string]any{
				"tool_name": "section_drafting",
				"input": map[string]any{
					"section_title":       s.Title,
					"section_description": sectionScope(s),
					"context":             "{generate_file_summaries.result.summary}",
				},
			},
			Dependencies: []string{"generate_file_summaries"},
		})
	}

	def.Nodes = append(def.Nodes,
		dag.NodeDef{
			NodeID:   "assemble_document",
			NodeType: string(core.KindTool),
			Config: map[string]any{
				"tool_name": "document_assembler",
				"input": map[string]any{
					"title":    tpl.Name,
					"sections": assembled,
					"order":    order,
					"metadata": "{params.metadata}",
				},
			},
			Dependencies: draftIDs,
		},
		dag.NodeDef{
			NodeID:   "write_final_doc",
			NodeType: string(core.KindTool),
			Config: map[string]any{
				"tool_name": "filesystem",
				"input": map[string]any{
					"operation": "write",
					"path":      "{params.output_path}",
					"content":   "{assemble_document.result.document}",
				},
			},
			Dependencies: []string{"assemble_document"},
		},
	)

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// SaveDocumentationDAG generates the definition and persists it through
// the DAG registry, replacing a previous generation for the same id.
func SaveDocumentationDAG(ctx context.Context, reg *dag.Registry, tpl *Template, dagID string) (*dag.Definition, error) {
	def, err := GenerateDocumentationDAG(tpl, dagID)
	if err != nil {
		return nil, err
	}
	if _, exists := reg.Get(dagID); exists {
		err = reg.Update(ctx, def)
	} else {
		err = reg.Add(ctx, def)
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}
