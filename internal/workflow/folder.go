package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/babar-raza/tbcv/pkg/models"
)

// singleFileItems adapts a validate_file workflow's single "file"
// parameter into the one-item list the batch runner expects.
func singleFileItems(params map[string]any) []string {
	if f := paramString(params, "file", ""); f != "" {
		return []string{f}
	}
	return nil
}

// filesForWorkflow resolves a workflow's full file list by type, the same
// resolution run() uses to start a fresh job and RecoverResumable uses to
// recompute what a resumed job has left to do.
func filesForWorkflow(wf *models.Workflow) ([]string, error) {
	switch wf.Type {
	case models.WorkflowValidateFile:
		return singleFileItems(wf.Parameters), nil
	case models.WorkflowValidateFolder:
		return resolveFolderFiles(wf.Parameters)
	case models.WorkflowBatchValidation, models.WorkflowBatchEnhancement:
		return paramStringSlice(wf.Parameters, "files"), nil
	default:
		return nil, fmt.Errorf("unknown workflow type: %s", wf.Type)
	}
}

// resolveFolderFiles walks a validate_folder workflow's "folder"
// parameter for Markdown files. filepath.WalkDir is stdlib rather than a
// pack library: none of the examples wrap directory traversal in a
// third-party walker, and fsnotify (used elsewhere in this codebase) is
// for watching, not listing.
func resolveFolderFiles(params map[string]any) ([]string, error) {
	root := paramString(params, "folder", "")
	if root == "" {
		return nil, fmt.Errorf("validate_folder: missing folder parameter")
	}
	recursive := paramBool(params, "recursive", true)

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".md" || ext == ".markdown" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk folder: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func paramString(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func paramStringSlice(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func paramInt(params map[string]any, key string, fallback int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return fallback
}

func paramFloat(params map[string]any, key string, fallback float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

func paramBool(params map[string]any, key string, fallback bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func paramPreservationRules(params map[string]any) models.PreservationRules {
	raw, ok := params["preservation_rules"]
	if !ok {
		return models.PreservationRules{}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return models.PreservationRules{}
	}
	return models.PreservationRules{
		Keywords:               paramStringSlice(m, "keywords"),
		ProductNames:           paramStringSlice(m, "product_names"),
		TechnicalTerms:         paramStringSlice(m, "technical_terms"),
		PreserveCodeBlocks:     paramBool(m, "preserve_code_blocks", true),
		PreserveFrontmatter:    paramBool(m, "preserve_frontmatter", true),
		PreserveHeadings:       paramBool(m, "preserve_headings", true),
		PreserveInternalLinks:  paramBool(m, "preserve_internal_links", true),
		PreserveTables:         paramBool(m, "preserve_tables", true),
		PreserveNumberedLists:  paramBool(m, "preserve_numbered_lists", true),
		MaxContentReductionPct: paramFloat(m, "max_content_reduction_pct", 0.20),
		MinContentExpansionPct: paramFloat(m, "min_content_expansion_pct", 0),
	}
}
