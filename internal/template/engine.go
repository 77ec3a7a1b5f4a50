package template

import (
	"bytes"
	"fmt"
	"strings"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
)

// Engine renders template expressions inside scenario step arguments.
// Strings are rendered through text/template with the sprig function map, so
// steps can reference registered results ({{ .steps.login.body.token }}) and
// use the usual helpers ({{ upper .vars.name }}, {{ uuidv4 }}).
type Engine struct {
	funcs texttemplate.FuncMap
}

// New creates a new template engine.
func New() *Engine {
	return &Engine{
		funcs: sprig.TxtFuncMap(),
	}
}

// Render renders a single string against the given data. Referencing a
// missing key is an error: a step must not silently run with an unresolved
// placeholder.
func (e *Engine) Render(value string, data map[string]interface{}) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := texttemplate.New("arg").
		Option("missingkey=error").
		Funcs(e.funcs).
		Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid template %q: %w", value, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", value, err)
	}
	return buf.String(), nil
}

// Replace renders all template expressions in a value, recursing through
// maps and slices. Non-templatable types are returned as-is.
func (e *Engine) Replace(value interface{}, data map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.Render(v, data)
	case map[string]interface{}:
		return e.replaceMap(v, data)
	case []interface{}:
		return e.replaceSlice(v, data)
	default:
		return value, nil
	}
}

func (e *Engine) replaceMap(m map[string]interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(m))
	for key, value := range m {
		replaced, err := e.Replace(value, data)
		if err != nil {
			return nil, fmt.Errorf("error in key %q: %w", key, err)
		}
		result[key] = replaced
	}
	return result, nil
}

func (e *Engine) replaceSlice(s []interface{}, data map[string]interface{}) ([]interface{}, error) {
	result := make([]interface{}, len(s))
	for i, value := range s {
		replaced, err := e.Replace(value, data)
		if err != nil {
			return nil, fmt.Errorf("error at index %d: %w", i, err)
		}
		result[i] = replaced
	}
	return result, nil
}

// Validate parses every string template in a value without executing it.
// The validate command uses it to catch template syntax errors before a run.
func (e *Engine) Validate(value interface{}) error {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, "{{") {
			return nil
		}
		if _, err := texttemplate.New("arg").Funcs(e.funcs).Parse(v); err != nil {
			return fmt.Errorf("invalid template %q: %w", v, err)
		}
		return nil
	case map[string]interface{}:
		for key, val := range v {
			if err := e.Validate(val); err != nil {
				return fmt.Errorf("error in key %q: %w", key, err)
			}
		}
		return nil
	case []interface{}:
		for i, val := range v {
			if err := e.Validate(val); err != nil {
				return fmt.Errorf("error at index %d: %w", i, err)
			}
		}
		return nil
	default:
		return nil
	}
}
