// Package project loads .cryproject manifests into project descriptors
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cryexport/cryexport/pkg/types"
)

// Extension is the project manifest file extension
const Extension = ".cryproject"

// DefaultCodeDir is used when the manifest lists no code directory
const DefaultCodeDir = "Code"

// ErrInvalidProject is returned for unreadable or incomplete project manifests
var ErrInvalidProject = errors.New("invalid project")

// InvalidProjectError describes what is wrong with a project manifest
type InvalidProjectError struct {
	Path  string
	Field string
	Err   error
}

func (e *InvalidProjectError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("invalid project %s: %s: %v", e.Path, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("invalid project %s: missing %s", e.Path, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("invalid project %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid project %s", e.Path)
}

func (e *InvalidProjectError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidProject) match every InvalidProjectError
func (e *InvalidProjectError) Is(target error) bool {
	return target == ErrInvalidProject
}

type manifest struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Require struct {
		Engine string `json:"engine"`
	} `json:"require"`
	Content struct {
		Assets []string `json:"assets"`
		Code   []string `json:"code"`
	} `json:"content"`
}

// Find returns the single project manifest in dir
func Find(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+Extension))
	if err != nil {
		return "", &InvalidProjectError{Path: dir, Err: err}
	}
	switch len(matches) {
	case 0:
		return "", &InvalidProjectError{Path: dir, Err: fmt.Errorf("no %s file found", Extension)}
	case 1:
		return matches[0], nil
	}

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	return "", &InvalidProjectError{Path: dir, Err: fmt.Errorf("multiple project files: %s", strings.Join(names, ", "))}
}

// Load reads a project manifest. path may be the manifest itself or the
// directory containing it.
func Load(path string) (*types.ProjectDescriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &InvalidProjectError{Path: path, Err: err}
	}
	if info.IsDir() {
		if path, err = Find(path); err != nil {
			return nil, err
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &InvalidProjectError{Path: path, Err: err}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &InvalidProjectError{Path: abs, Err: err}
	}

	p, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		var ipe *InvalidProjectError
		if errors.As(err, &ipe) {
			ipe.Path = abs
		}
		return nil, err
	}
	return p, nil
}

// Parse decodes manifest data for a project rooted at root. JSON is expected;
// YAML is accepted as a fallback.
func Parse(data []byte, root string) (*types.ProjectDescriptor, error) {
	raw, err := decode(data)
	if err != nil {
		return nil, &InvalidProjectError{Path: root, Err: err}
	}

	// Round-trip through JSON so both formats share one set of struct tags
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, &InvalidProjectError{Path: root, Err: err}
	}
	var m manifest
	if err := json.Unmarshal(normalized, &m); err != nil {
		return nil, &InvalidProjectError{Path: root, Err: err}
	}

	var assetDir string
	if len(m.Content.Assets) > 0 {
		assetDir = m.Content.Assets[0]
	}
	codeDir := DefaultCodeDir
	if len(m.Content.Code) > 0 && m.Content.Code[0] != "" {
		codeDir = m.Content.Code[0]
	}
	_, hasCSharp := raw["csharp"]

	p, err := types.NewProjectDescriptor(root, m.Info.Name, m.Require.Engine, assetDir, codeDir, hasCSharp)
	if err != nil {
		var mfe *types.MissingFieldError
		if errors.As(err, &mfe) {
			return nil, &InvalidProjectError{Path: root, Field: mfe.Field}
		}
		return nil, &InvalidProjectError{Path: root, Err: err}
	}
	return p, nil
}

func decode(data []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	jsonErr := json.Unmarshal(data, &raw)
	if jsonErr == nil {
		return raw, nil
	}

	raw = nil
	if err := yaml.Unmarshal(data, &raw); err == nil && raw != nil {
		return raw, nil
	}
	return nil, fmt.Errorf("failed to parse manifest as JSON or YAML: %w", jsonErr)
}
