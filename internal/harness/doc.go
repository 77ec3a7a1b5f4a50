// Package harness provides the scenario execution engine for mend.
//
// # Architecture Overview
//
// The harness is built around a small set of interfaces so that the CLI, the
// MCP server and the tests can all drive the same engine:
//
// ```
//
//	         ┌─────────────────┐
//	         │    mend run     │ (CLI Command)
//	         │  (cmd/run.go)   │
//	         └────────┬────────┘
//	                  │
//	         ┌────────▼────────┐
//	         │     Runner      │ (Core Engine)
//	         │   (runner.go)   │
//	         └────────┬────────┘
//	                  │
//	    ┌─────────────┼─────────────┐
//	    │             │             │
//	┌───▼──────┐ ┌────▼────────┐ ┌──▼────────┐
//	│Environment│ │ScenarioLoader│ │ Reporter  │
//	│ Manager   │ │(scenario_    │ │(reporter  │
//	│(fixture)  │ │ loader.go)   │ │ .go)      │
//	└───────────┘ └─────────────┘ └───────────┘
//
// ```
//
// # Core Components
//
// ## Runner
//
// The Runner executes scenarios sequentially. For each scenario it acquires
// an Environment (browser page and/or API client) from the
// EnvironmentManager, resolves step arguments through the template engine,
// dispatches actions, checks expectations, and always runs cleanup steps
// last, even when the scenario timed out.
//
// ## ScenarioLoader
//
// The ScenarioLoader reads YAML scenario definitions from a file or
// directory tree and filters them by suite, name, and tags. Step IDs must be
// unique within a scenario because step results are registered under them
// for template access.
//
// ## Reporter
//
// Reporters receive execution events. CLI mode uses the console reporter;
// MCP server mode uses the structured reporter, which collects results in
// memory because stdout belongs to the protocol there.
//
// # Scenario Format
//
//	name: login-flow
//	suite: auth
//	vars:
//	  user: admin
//	config:
//	  ui:
//	    base_url: https://app.example.com
//	  api:
//	    base_url: https://api.example.com
//	steps:
//	  - id: open
//	    action: navigate
//	    args:
//	      url: /login
//	  - id: fill_user
//	    action: fill
//	    args:
//	      selector: "#username"
//	      value: "{{ .vars.user }}"
//	      context:
//	        placeholder: Username
//	  - id: whoami
//	    action: api_get
//	    args:
//	      path: /v1/me
//	    expected:
//	      status: 200
//	      json_path:
//	        user.name: admin
//	cleanup:
//	  - id: logout
//	    action: api_post
//	    args:
//	      path: /v1/logout
//
// Step results are available to later steps as {{ .steps.<id>.<field> }},
// so "{{ .steps.whoami.body.user.name }}" resolves against the parsed JSON
// body of the whoami step.
//
// # Locator Healing
//
// UI steps carry an optional context block (role, text, placeholder,
// test_id). When the primary selector no longer matches, the resolver walks
// fallback strategies built from that context and reports every healed
// locator in the scenario result so stale selectors get fixed instead of
// silently passing forever. See the locator package for the strategy order.
//
// # Error Classification
//
// The harness distinguishes test failures from harness errors:
//   - FAILED: an expectation was not met, an element stayed missing after
//     healing, or an assertion did not hold
//   - ERROR: execution broke before expectations could be checked
//     (environment setup, template resolution, transport failure)
//
// Expected failures are first-class: a step with expected.error_contains
// passes only when it fails with matching text.
package harness
