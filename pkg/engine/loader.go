package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/mocktape/mocktape/pkg/mock"
	"github.com/mocktape/mocktape/pkg/registry"
)

// MockSpec is one mock in a YAML mock file.
type MockSpec struct {
	Method     string            `yaml:"method"`
	Path       string            `yaml:"path"`
	Status     int               `yaml:"status"`
	StatusText string            `yaml:"statusText"`
	Headers    map[string]string `yaml:"headers"`
	Body       any               `yaml:"body"`
	Scenario   string            `yaml:"scenario"`
	Priority   int               `yaml:"priority"`
	Delay      string            `yaml:"delay"`
}

type mockFile struct {
	Mocks    []MockSpec `yaml:"mocks"`
	Includes []string   `yaml:"includes"`
}

// LoadMocks reads a YAML mock file and registers its mocks. Include patterns
// are resolved relative to the file and support ** globs; matches load in
// sorted order so registration order is deterministic. Returns the number of
// mocks registered.
func (e *MockEngine) LoadMocks(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read mock file %s: %w", path, err)
	}

	var file mockFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("failed to parse mock file %s: %w", path, err)
	}

	count := 0
	for i, spec := range file.Mocks {
		if err := e.registerSpec(spec); err != nil {
			return count, fmt.Errorf("mock %d in %s: %w", i+1, path, err)
		}
		count++
	}

	baseDir := filepath.Dir(path)
	for _, pattern := range file.Includes {
		matches, err := expandGlob(filepath.Join(baseDir, pattern))
		if err != nil {
			return count, fmt.Errorf("include pattern %q in %s: %w", pattern, path, err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			n, err := e.LoadMocks(match)
			count += n
			if err != nil {
				return count, err
			}
		}
	}

	e.log.Debug("mock file loaded", "path", path, "mocks", count)
	return count, nil
}

func (e *MockEngine) registerSpec(spec MockSpec) error {
	if spec.Method == "" || spec.Path == "" {
		return fmt.Errorf("method and path are required")
	}
	status := spec.Status
	if status == 0 {
		status = 200
	}

	resp := &mock.Response{
		Status:     status,
		StatusText: spec.StatusText,
		Headers:    spec.Headers,
		Data:       spec.Body,
	}
	if spec.Delay != "" {
		delay, err := time.ParseDuration(spec.Delay)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", spec.Delay, err)
		}
		resp.Delay = delay
	}

	e.registry.Register(spec.Method, spec.Path, mock.StaticProducer(resp), &registry.Options{
		Scenario: spec.Scenario,
		Priority: spec.Priority,
	})
	return nil
}

// expandGlob matches files for an include pattern, using doublestar when the
// pattern needs ** support.
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return doublestar.FilepathGlob(pattern)
	}
	return filepath.Glob(pattern)
}
