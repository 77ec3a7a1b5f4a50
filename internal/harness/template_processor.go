package harness

import (
	"fmt"
	"sync"

	"mend/internal/template"
)

// RunContext holds the execution context for one scenario: the scenario
// variables plus every registered step result, exposed to templates as
// {{ .vars.* }} and {{ .steps.<id>.* }}.
type RunContext struct {
	mu    sync.RWMutex
	vars  map[string]interface{}
	steps map[string]interface{}
}

// NewRunContext creates a run context seeded with the scenario variables.
func NewRunContext(vars map[string]interface{}) *RunContext {
	if vars == nil {
		vars = make(map[string]interface{})
	}
	return &RunContext{
		vars:  vars,
		steps: make(map[string]interface{}),
	}
}

// RegisterStepResult stores a step's response under its step ID.
func (rc *RunContext) RegisterStepResult(stepID string, result interface{}) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.steps[stepID] = result
}

// StepResult retrieves a registered step result.
func (rc *RunContext) StepResult(stepID string) (interface{}, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	result, exists := rc.steps[stepID]
	return result, exists
}

// Data returns the template data map built from the current state.
func (rc *RunContext) Data() map[string]interface{} {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	steps := make(map[string]interface{}, len(rc.steps))
	for id, result := range rc.steps {
		steps[id] = result
	}

	return map[string]interface{}{
		"vars":  rc.vars,
		"steps": steps,
	}
}

// ArgResolver renders template expressions in step arguments against a run
// context.
type ArgResolver struct {
	context *RunContext
	engine  *template.Engine
}

// NewArgResolver creates an argument resolver bound to the given run context.
func NewArgResolver(context *RunContext) *ArgResolver {
	return &ArgResolver{
		context: context,
		engine:  template.New(),
	}
}

// ResolveArgs renders every template expression in the argument map.
func (ar *ArgResolver) ResolveArgs(args map[string]interface{}) (map[string]interface{}, error) {
	if args == nil {
		return nil, nil
	}

	resolved, err := ar.engine.Replace(args, ar.context.Data())
	if err != nil {
		return nil, err
	}

	resolvedMap, ok := resolved.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("template resolution returned unexpected type: %T", resolved)
	}
	return resolvedMap, nil
}
