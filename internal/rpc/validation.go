package rpc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/babar-raza/tbcv/internal/rpcerr"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
)

func registerValidationMethods(reg *Registry, d Deps) {
	reg.register("validate_folder", CategoryValidation, ParamSchema{
		Required: []ParamSpec{{Name: "folder", Type: TypeString}, {Name: "family", Type: TypeString}},
		Optional: []ParamSpec{{Name: "recursive", Type: TypeBool, Default: true}, {Name: "validators", Type: TypeArray}},
	}, d.validateFolder)

	reg.register("validate_file", CategoryValidation, ParamSchema{
		Required: []ParamSpec{{Name: "file", Type: TypeString}, {Name: "family", Type: TypeString}},
		Optional: []ParamSpec{{Name: "validators", Type: TypeArray}},
	}, d.validateFile)

	reg.register("validate_content", CategoryValidation, ParamSchema{
		Required: []ParamSpec{{Name: "content", Type: TypeString}, {Name: "family", Type: TypeString}},
		Optional: []ParamSpec{{Name: "file_path", Type: TypeString, Default: ""}, {Name: "validators", Type: TypeArray}},
	}, d.validateContent)

	reg.register("get_validation", CategoryValidation, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.getValidationRPC)

	reg.register("list_validations", CategoryValidation, ParamSchema{
		Optional: []ParamSpec{
			{Name: "family", Type: TypeString, Default: ""},
			{Name: "status", Type: TypeString, Default: ""},
			{Name: "limit", Type: TypeInt, Default: 0},
			{Name: "offset", Type: TypeInt, Default: 0},
		},
	}, d.listValidations)

	reg.register("update_validation", CategoryValidation, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
		Optional: []ParamSpec{{Name: "severity", Type: TypeString}, {Name: "status", Type: TypeString}},
	}, d.updateValidation)

	reg.register("delete_validation", CategoryValidation, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, d.deleteValidation)

	reg.register("revalidate", CategoryValidation, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
		Optional: []ParamSpec{{Name: "validators", Type: TypeArray}},
	}, d.revalidate)
}

func (d Deps) validateContent(ctx context.Context, params map[string]any) (any, error) {
	content := paramString(params, "content", "")
	family := models.Family(paramString(params, "family", ""))
	filePath := paramString(params, "file_path", "")
	v, err := d.runValidation(ctx, filePath, family, content, params)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (d Deps) validateFile(ctx context.Context, params map[string]any) (any, error) {
	path := paramString(params, "file", "")
	content, err := readFile(path)
	if err != nil {
		return nil, err
	}
	family := models.Family(paramString(params, "family", ""))
	v, err := d.runValidation(ctx, path, family, content, params)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// validateFolder walks the folder synchronously and validates every
// Markdown file it finds, returning one Validation per file. Large
// folders are better driven through create_workflow(type=validate_folder),
// which does the same walk under a bounded worker pool with checkpointing
// (§4.6); this method is the direct, blocking counterpart for small
// ad-hoc folders and scripting.
func (d Deps) validateFolder(ctx context.Context, params map[string]any) (any, error) {
	root := paramString(params, "folder", "")
	recursive := paramBool(params, "recursive", true)
	family := models.Family(paramString(params, "family", ""))

	var files []string
	err := filepath.WalkDir(root, func(path string, de os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
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
		return nil, rpcerr.Newf(rpcerr.CodeInternalError, "walk folder %q: %v", root, err)
	}
	sort.Strings(files)

	out := make([]*models.Validation, 0, len(files))
	var failures []string
	for _, path := range files {
		content, rerr := readFile(path)
		if rerr != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", path, rerr))
			continue
		}
		v, rerr := d.runValidation(ctx, path, family, content, params)
		if rerr != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", path, rerr))
			continue
		}
		out = append(out, v)
	}
	return map[string]any{
		"validations": out,
		"failures":    failures,
	}, nil
}

func (d Deps) getValidationRPC(ctx context.Context, params map[string]any) (any, error) {
	return d.getValidation(ctx, paramString(params, "id", ""))
}

func (d Deps) listValidations(ctx context.Context, params map[string]any) (any, error) {
	filter := store.ValidationFilter{
		Family: models.Family(paramString(params, "family", "")),
		Status: models.ValidationStatus(paramString(params, "status", "")),
		Limit:  paramInt(params, "limit", 0),
		Offset: paramInt(params, "offset", 0),
	}
	list, err := d.Store.ListValidations(ctx, filter)
	if err != nil {
		return nil, rpcerr.Internal(err)
	}
	return list, nil
}

// updateValidation allows a narrow, explicit manual override of a
// Validation's severity/status fields — e.g. a reviewer downgrading a
// false-positive's severity — never its content or rule results, which
// are only ever produced by running validators (§4.7 "validations are
// derived, not hand-edited").
func (d Deps) updateValidation(ctx context.Context, params map[string]any) (any, error) {
	id := paramString(params, "id", "")
	v, err := d.getValidation(ctx, id)
	if err != nil {
		return nil, err
	}
	if sev := paramString(params, "severity", ""); sev != "" {
		v.Severity = models.Severity(sev)
	}
	if status := paramString(params, "status", ""); status != "" {
		v.Status = models.ValidationStatus(status)
	}
	v.UpdatedAt = time.Now().UTC()
	if err := d.Store.UpdateValidation(ctx, v); err != nil {
		return nil, rpcerr.Internal(err)
	}
	return v, nil
}

func (d Deps) deleteValidation(ctx context.Context, params map[string]any) (any, error) {
	id := paramString(params, "id", "")
	if _, err := d.getValidation(ctx, id); err != nil {
		return nil, err
	}
	if err := d.Store.DeleteValidation(ctx, id); err != nil {
		return nil, rpcerr.Internal(err)
	}
	return map[string]any{"deleted": id}, nil
}

// revalidate creates a brand new Validation from an existing one's
// file_path/family/content, never mutating the original (§4.7 "revalidate
// creates a new Validation, never mutates an existing one").
func (d Deps) revalidate(ctx context.Context, params map[string]any) (any, error) {
	id := paramString(params, "id", "")
	orig, err := d.getValidation(ctx, id)
	if err != nil {
		return nil, err
	}
	content := orig.OriginalContent
	if orig.FilePath != "" {
		if fresh, rerr := readFile(orig.FilePath); rerr == nil {
			content = fresh
		}
	}
	v, err := d.runValidation(ctx, orig.FilePath, orig.Family, content, params)
	if err != nil {
		return nil, err
	}
	return v, nil
}
