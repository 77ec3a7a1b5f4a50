package harness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// scenarioLoader implements the ScenarioLoader interface
type scenarioLoader struct {
	debug  bool
	logger Logger
}

// NewScenarioLoader creates a new scenario loader
func NewScenarioLoader(debug bool) ScenarioLoader {
	return &scenarioLoader{
		debug:  debug,
		logger: NewStdoutLogger(false, debug),
	}
}

// NewScenarioLoaderWithLogger creates a new scenario loader with custom logger
func NewScenarioLoaderWithLogger(debug bool, logger Logger) ScenarioLoader {
	return &scenarioLoader{
		debug:  debug,
		logger: logger,
	}
}

// LoadScenarios loads scenarios from the given path, which may be a single
// YAML file or a directory tree of them.
func (l *scenarioLoader) LoadScenarios(path string) ([]Scenario, error) {
	var scenarios []Scenario

	if l.debug {
		l.logger.Debug("📁 Loading scenarios from: %s\n", path)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario path does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat scenario path: %w", err)
	}

	if info.IsDir() {
		scenarios, err = l.loadScenariosFromDirectory(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenarios from directory: %w", err)
		}
	} else {
		scenario, err := l.loadScenarioFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario from file: %w", err)
		}
		scenarios = append(scenarios, scenario)
	}

	if l.debug {
		l.logger.Debug("📋 Loaded %d scenarios\n", len(scenarios))
		for _, scenario := range scenarios {
			l.logger.Debug("  • %s (suite: %s) - %d steps\n",
				scenario.Name, scenario.Suite, len(scenario.Steps))
		}
	}

	return scenarios, nil
}

// loadScenariosFromDirectory loads all YAML scenario files from a directory
func (l *scenarioLoader) loadScenariosFromDirectory(dirPath string) ([]Scenario, error) {
	var scenarios []Scenario

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if !l.isYAMLFile(path) {
			return nil
		}

		if l.debug {
			l.logger.Debug("📄 Loading scenario file: %s\n", path)
		}

		scenario, err := l.loadScenarioFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to load scenario from %s: %w", path, err)
		}

		scenarios = append(scenarios, scenario)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}

	return scenarios, nil
}

// loadScenarioFromFile loads a single scenario from a YAML file
func (l *scenarioLoader) loadScenarioFromFile(filePath string) (Scenario, error) {
	var scenario Scenario

	content, err := os.ReadFile(filePath)
	if err != nil {
		return scenario, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	if err := yaml.Unmarshal(content, &scenario); err != nil {
		return scenario, fmt.Errorf("failed to parse YAML in %s: %w", filePath, err)
	}

	if err := l.validateScenario(scenario); err != nil {
		return scenario, fmt.Errorf("invalid scenario in %s: %w", filePath, err)
	}

	return scenario, nil
}

// validateScenario validates that a scenario has required fields
func (l *scenarioLoader) validateScenario(scenario Scenario) error {
	if scenario.Name == "" {
		return fmt.Errorf("scenario name is required")
	}

	if len(scenario.Steps) == 0 {
		return fmt.Errorf("scenario must have at least one step")
	}

	seenIDs := make(map[string]bool)
	for i, step := range scenario.Steps {
		if err := l.validateStep(step, seenIDs); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	for i, step := range scenario.Cleanup {
		if err := l.validateStep(step, seenIDs); err != nil {
			return fmt.Errorf("cleanup step %d: %w", i+1, err)
		}
	}

	return nil
}

// validateStep validates that a step has required fields. Step IDs must be
// unique within a scenario because results are registered under steps.<id>.
func (l *scenarioLoader) validateStep(step Step, seenIDs map[string]bool) error {
	if step.ID == "" {
		return fmt.Errorf("step id is required")
	}

	if seenIDs[step.ID] {
		return fmt.Errorf("duplicate step id %q", step.ID)
	}
	seenIDs[step.ID] = true

	if step.Action == "" {
		return fmt.Errorf("step action is required")
	}

	if !IsKnownAction(step.Action) {
		return fmt.Errorf("unknown action %q (known actions: %s)",
			step.Action, strings.Join(KnownActions(), ", "))
	}

	return nil
}

// FilterScenarios filters scenarios based on the configuration
func (l *scenarioLoader) FilterScenarios(scenarios []Scenario, config Configuration) []Scenario {
	if l.debug {
		l.logger.Debug("🔍 Filtering scenarios based on configuration\n")
		l.logger.Debug("  • Suite filter: %s\n", config.Suite)
		l.logger.Debug("  • Scenario filter: %s\n", config.Scenario)
		l.logger.Debug("  • Tag filter: %s\n", strings.Join(config.Tags, ", "))
	}

	var filtered []Scenario

	for _, scenario := range scenarios {
		if config.Suite != "" && scenario.Suite != config.Suite {
			continue
		}

		if config.Scenario != "" && scenario.Name != config.Scenario {
			continue
		}

		if !hasAllTags(scenario, config.Tags) {
			continue
		}

		filtered = append(filtered, scenario)
	}

	if l.debug {
		l.logger.Debug("📊 Filtered to %d scenarios\n", len(filtered))
	}

	return filtered
}

// hasAllTags reports whether the scenario carries every requested tag.
func hasAllTags(scenario Scenario, tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range scenario.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// isYAMLFile checks if a file has a YAML extension
func (l *scenarioLoader) isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// GetScenarioNames returns all scenario names
func GetScenarioNames(scenarios []Scenario) []string {
	var names []string
	for _, scenario := range scenarios {
		names = append(names, scenario.Name)
	}
	return names
}

// GetSuites returns all unique suite names from scenarios
func GetSuites(scenarios []Scenario) []string {
	suiteMap := make(map[string]bool)
	for _, scenario := range scenarios {
		if scenario.Suite != "" {
			suiteMap[scenario.Suite] = true
		}
	}

	var suites []string
	for suite := range suiteMap {
		suites = append(suites, suite)
	}
	return suites
}

// GetDefaultScenarioPath returns the default path for scenarios
func GetDefaultScenarioPath() string {
	return "scenarios"
}

// GetScenarioPath determines the actual scenario path to use, handling
// empty/default cases
func GetScenarioPath(path string) string {
	if path == "" {
		return GetDefaultScenarioPath()
	}
	return path
}

// LoadAndFilterScenarios provides a unified way to load and filter scenarios
func LoadAndFilterScenarios(path string, config Configuration, logger Logger) ([]Scenario, error) {
	actualPath := GetScenarioPath(path)

	var loader ScenarioLoader
	if logger != nil {
		loader = NewScenarioLoaderWithLogger(config.Debug, logger)
	} else {
		loader = NewScenarioLoader(config.Debug)
	}

	scenarios, err := loader.LoadScenarios(actualPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios from %s: %w", actualPath, err)
	}

	return loader.FilterScenarios(scenarios, config), nil
}

// LoadScenariosForCompletion provides a simple way to load scenarios for
// shell completion. Errors yield an empty list so completion output stays
// clean.
func LoadScenariosForCompletion(path string) ([]Scenario, error) {
	loader := NewScenarioLoader(false)
	scenarios, err := loader.LoadScenarios(GetScenarioPath(path))
	if err != nil {
		return []Scenario{}, nil
	}
	return scenarios, nil
}
