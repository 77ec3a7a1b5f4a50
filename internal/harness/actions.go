package harness

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"mend/internal/apiclient"
	"mend/internal/locator"
)

// Step action names. UI actions drive the browser page through the healing
// resolver; api_* actions go through the scenario's HTTP client.
const (
	// ActionNavigate loads a URL (relative targets join the ui base_url)
	ActionNavigate = "navigate"
	// ActionClick clicks the resolved element
	ActionClick = "click"
	// ActionFill fills the resolved input with a value
	ActionFill = "fill"
	// ActionPress sends a key chord to the focused element
	ActionPress = "press"
	// ActionAssertVisible asserts the element becomes visible
	ActionAssertVisible = "assert_visible"
	// ActionAssertText asserts the element text contains a fragment
	ActionAssertText = "assert_text"
	// ActionScreenshot captures the page to the screenshot directory
	ActionScreenshot = "screenshot"
	// ActionWait pauses for a fixed duration
	ActionWait = "wait"
	// ActionAPIGet issues a GET request
	ActionAPIGet = "api_get"
	// ActionAPIPost issues a POST request
	ActionAPIPost = "api_post"
	// ActionAPIPut issues a PUT request
	ActionAPIPut = "api_put"
	// ActionAPIPatch issues a PATCH request
	ActionAPIPatch = "api_patch"
	// ActionAPIDelete issues a DELETE request
	ActionAPIDelete = "api_delete"
	// ActionAPISetToken installs a bearer token on the scenario's client
	ActionAPISetToken = "api_set_token"
	// ActionAPIClearToken removes the bearer token
	ActionAPIClearToken = "api_clear_token"
)

var uiActions = map[string]bool{
	ActionNavigate:      true,
	ActionClick:         true,
	ActionFill:          true,
	ActionPress:         true,
	ActionAssertVisible: true,
	ActionAssertText:    true,
	ActionScreenshot:    true,
}

var apiActionMethods = map[string]string{
	ActionAPIGet:    http.MethodGet,
	ActionAPIPost:   http.MethodPost,
	ActionAPIPut:    http.MethodPut,
	ActionAPIPatch:  http.MethodPatch,
	ActionAPIDelete: http.MethodDelete,
}

var knownActions = buildKnownActions()

func buildKnownActions() map[string]bool {
	known := map[string]bool{
		ActionWait:          true,
		ActionAPISetToken:   true,
		ActionAPIClearToken: true,
	}
	for action := range uiActions {
		known[action] = true
	}
	for action := range apiActionMethods {
		known[action] = true
	}
	return known
}

// IsKnownAction reports whether the action name is recognized.
func IsKnownAction(action string) bool {
	return knownActions[action]
}

// IsUIAction reports whether the action drives the browser.
func IsUIAction(action string) bool {
	return uiActions[action]
}

// KnownActions returns all recognized action names, sorted.
func KnownActions() []string {
	actions := make([]string, 0, len(knownActions))
	for action := range knownActions {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// NeedsBrowser reports whether any step or cleanup step of the scenario
// drives the browser. Environment managers use it to skip browser startup
// for API-only scenarios.
func NeedsBrowser(scenario Scenario) bool {
	for _, step := range scenario.Steps {
		if IsUIAction(step.Action) {
			return true
		}
	}
	for _, step := range scenario.Cleanup {
		if IsUIAction(step.Action) {
			return true
		}
	}
	return false
}

// assertionError marks mismatches that are test failures rather than
// execution errors.
type assertionError struct {
	msg string
}

func (e *assertionError) Error() string { return e.msg }

func assertionFailedf(format string, args ...interface{}) error {
	return &assertionError{msg: fmt.Sprintf(format, args...)}
}

// execution bundles the per-scenario state that step actions operate on.
type execution struct {
	scenario Scenario
	config   Configuration
	env      *Environment
	resolver *locator.Resolver
	healing  *locator.Config
	rctx     *RunContext
	logger   Logger
}

// execute dispatches one step action. It returns the response to register
// under steps.<id>, the locator resolution for UI steps that resolved an
// element, and the step error.
func (e *execution) execute(ctx context.Context, step Step, args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	if IsUIAction(step.Action) && e.env.Page == nil {
		return nil, nil, fmt.Errorf("action %q needs a browser but no page is attached to this scenario", step.Action)
	}

	switch step.Action {
	case ActionNavigate:
		return e.navigate(ctx, args)
	case ActionClick:
		return e.click(ctx, args)
	case ActionFill:
		return e.fill(ctx, args)
	case ActionPress:
		return e.press(ctx, args)
	case ActionAssertVisible:
		return e.assertVisible(ctx, args)
	case ActionAssertText:
		return e.assertText(ctx, args)
	case ActionScreenshot:
		return e.screenshot(ctx, step, args)
	case ActionWait:
		return e.wait(ctx, args)
	case ActionAPISetToken:
		return e.setToken(args)
	case ActionAPIClearToken:
		return e.clearToken()
	}

	if method, ok := apiActionMethods[step.Action]; ok {
		response, err := e.request(ctx, method, args)
		return response, nil, err
	}

	return nil, nil, fmt.Errorf("unknown action %q", step.Action)
}

func (e *execution) navigate(ctx context.Context, args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	url, err := stringArg(args, "url")
	if err != nil {
		return nil, nil, err
	}

	target := joinURL(e.env.BaseURL, url)
	if err := e.env.Page.Navigate(ctx, target); err != nil {
		return nil, nil, err
	}

	return map[string]interface{}{"url": target}, nil, nil
}

func (e *execution) click(ctx context.Context, args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	ectx, err := elementContextArg(args)
	if err != nil {
		return nil, nil, err
	}

	res, err := e.resolveElement(ctx, ectx)
	if err != nil {
		return nil, nil, err
	}

	if err := res.Element.Click(ctx); err != nil {
		return nil, res, fmt.Errorf("click failed for %q: %w", ectx.OriginalSelector, err)
	}

	return elementResponse(ectx, res), res, nil
}

func (e *execution) fill(ctx context.Context, args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	ectx, err := elementContextArg(args)
	if err != nil {
		return nil, nil, err
	}
	value, err := stringArg(args, "value")
	if err != nil {
		return nil, nil, err
	}

	res, err := e.resolveElement(ctx, ectx)
	if err != nil {
		return nil, nil, err
	}

	if err := res.Element.Fill(ctx, value); err != nil {
		return nil, res, fmt.Errorf("fill failed for %q: %w", ectx.OriginalSelector, err)
	}

	return elementResponse(ectx, res), res, nil
}

func (e *execution) press(ctx context.Context, args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, nil, err
	}

	if err := e.env.Page.Press(ctx, key); err != nil {
		return nil, nil, fmt.Errorf("press %q failed: %w", key, err)
	}

	return map[string]interface{}{"key": key}, nil, nil
}

func (e *execution) assertVisible(ctx context.Context, args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	ectx, err := elementContextArg(args)
	if err != nil {
		return nil, nil, err
	}

	res, err := e.resolveElement(ctx, ectx)
	if err != nil {
		return nil, nil, err
	}

	return elementResponse(ectx, res), res, nil
}

func (e *execution) assertText(ctx context.Context, args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	ectx, err := elementContextArg(args)
	if err != nil {
		return nil, nil, err
	}
	want, err := stringArg(args, "text")
	if err != nil {
		return nil, nil, err
	}

	res, err := e.resolveElement(ctx, ectx)
	if err != nil {
		return nil, nil, err
	}

	text, err := res.Element.Text(ctx)
	if err != nil {
		return nil, res, fmt.Errorf("failed to read text of %q: %w", ectx.OriginalSelector, err)
	}

	if !strings.Contains(text, want) {
		return nil, res, assertionFailedf("element %q text %q does not contain %q", ectx.OriginalSelector, text, want)
	}

	response := elementResponse(ectx, res)
	response["text"] = text
	return response, res, nil
}

func (e *execution) screenshot(ctx context.Context, step Step, args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	name := optionalStringArg(args, "name")
	if name == "" {
		name = step.ID
	}

	data, err := e.env.Page.Screenshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("screenshot failed: %w", err)
	}

	dir := e.config.ScreenshotPath
	if dir == "" {
		dir = "screenshots"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s-%s.png",
		sanitizeName(e.scenario.Name), sanitizeName(name), time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, nil, fmt.Errorf("failed to save screenshot: %w", err)
	}

	return map[string]interface{}{"path": path, "bytes": len(data)}, nil, nil
}

func (e *execution) wait(ctx context.Context, args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	duration, ok, err := durationArg(args, "duration")
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("missing required argument %q", "duration")
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-time.After(duration):
	}

	return map[string]interface{}{"waited": duration.String()}, nil, nil
}

func (e *execution) setToken(args map[string]interface{}) (interface{}, *locator.Resolution, error) {
	token, err := stringArg(args, "token")
	if err != nil {
		return nil, nil, err
	}
	e.env.API.SetAuthToken(token)
	return map[string]interface{}{"auth": "bearer"}, nil, nil
}

func (e *execution) clearToken() (interface{}, *locator.Resolution, error) {
	e.env.API.ClearAuthToken()
	return map[string]interface{}{"auth": "cleared"}, nil, nil
}

func (e *execution) request(ctx context.Context, method string, args map[string]interface{}) (interface{}, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}

	opts, err := requestOptions(args)
	if err != nil {
		return nil, err
	}

	var resp *apiclient.Response
	switch method {
	case http.MethodGet:
		resp, err = e.env.API.Get(ctx, path, opts)
	case http.MethodPost:
		resp, err = e.env.API.Post(ctx, path, opts)
	case http.MethodPut:
		resp, err = e.env.API.Put(ctx, path, opts)
	case http.MethodPatch:
		resp, err = e.env.API.Patch(ctx, path, opts)
	case http.MethodDelete:
		resp, err = e.env.API.Delete(ctx, path, opts)
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}
	if err != nil {
		return nil, err
	}

	return apiResponseData(resp), nil
}

// resolveElement runs the primary selector through the healing resolver.
func (e *execution) resolveElement(ctx context.Context, ectx locator.ElementContext) (*locator.Resolution, error) {
	primary := e.env.Page.Locate(ectx.OriginalSelector)
	return e.resolver.Resolve(ctx, primary, ectx, e.healing)
}

// elementResponse builds the registered response for a resolved element.
func elementResponse(ectx locator.ElementContext, res *locator.Resolution) map[string]interface{} {
	return map[string]interface{}{
		"selector": ectx.OriginalSelector,
		"strategy": res.Strategy,
		"healed":   res.Healed,
	}
}

// apiResponseData converts an API response into the map registered under
// steps.<id> for templates and expectation checks.
func apiResponseData(resp *apiclient.Response) map[string]interface{} {
	headers := make(map[string]interface{}, len(resp.Headers))
	for key, value := range resp.Headers {
		headers[key] = value
	}

	return map[string]interface{}{
		"status":      resp.Status,
		"status_text": resp.StatusText,
		"body":        resp.Body,
		"raw_body":    resp.RawBody,
		"headers":     headers,
		"duration_ms": resp.Duration.Milliseconds(),
		"url":         resp.URL,
		"method":      resp.Method,
		"ok":          resp.OK(),
	}
}

// elementContextArg extracts the selector plus optional context hints.
func elementContextArg(args map[string]interface{}) (locator.ElementContext, error) {
	selector, err := stringArg(args, "selector")
	if err != nil {
		return locator.ElementContext{}, err
	}

	ectx := locator.ElementContext{OriginalSelector: selector}

	raw, ok := args["context"]
	if !ok {
		return ectx, nil
	}
	hints, ok := raw.(map[string]interface{})
	if !ok {
		return locator.ElementContext{}, fmt.Errorf("argument %q must be a map, got %T", "context", raw)
	}

	ectx.Role = optionalStringArg(hints, "role")
	ectx.Text = optionalStringArg(hints, "text")
	ectx.Placeholder = optionalStringArg(hints, "placeholder")
	ectx.TestID = optionalStringArg(hints, "test_id")
	return ectx, nil
}

// requestOptions builds per-request options from step arguments.
func requestOptions(args map[string]interface{}) (*apiclient.RequestOptions, error) {
	opts := &apiclient.RequestOptions{}

	headers, err := stringMapArg(args, "headers")
	if err != nil {
		return nil, err
	}
	opts.Headers = headers

	params, err := stringMapArg(args, "params")
	if err != nil {
		return nil, err
	}
	opts.Params = params

	if body, ok := args["body"]; ok {
		opts.Body = body
	}

	timeout, ok, err := durationArg(args, "timeout")
	if err != nil {
		return nil, err
	}
	if ok {
		opts.Timeout = timeout
	}

	retries, ok, err := intArg(args, "retries")
	if err != nil {
		return nil, err
	}
	if ok {
		opts.Retries = retries
	}

	return opts, nil
}

// joinURL joins a relative target onto a base URL. Absolute targets pass
// through untouched.
func joinURL(base, target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if base == "" {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return strings.TrimSuffix(base, "/") + target
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, raw)
	}
	return value, nil
}

func optionalStringArg(args map[string]interface{}, key string) string {
	if raw, ok := args[key]; ok {
		if value, ok := raw.(string); ok {
			return value
		}
	}
	return ""
}

// durationArg reads a duration argument. Strings go through
// time.ParseDuration; bare numbers are taken as milliseconds.
func durationArg(args map[string]interface{}, key string) (time.Duration, bool, error) {
	raw, ok := args[key]
	if !ok {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, false, fmt.Errorf("argument %q: invalid duration %q: %w", key, v, err)
		}
		return parsed, true, nil
	case int:
		return time.Duration(v) * time.Millisecond, true, nil
	case int64:
		return time.Duration(v) * time.Millisecond, true, nil
	case float64:
		return time.Duration(v) * time.Millisecond, true, nil
	default:
		return 0, false, fmt.Errorf("argument %q must be a duration string or milliseconds, got %T", key, raw)
	}
}

func intArg(args map[string]interface{}, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		return int(v), true, nil
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, false, fmt.Errorf("argument %q must be an integer, got %q", key, v)
		}
		return parsed, true, nil
	default:
		return 0, false, fmt.Errorf("argument %q must be an integer, got %T", key, raw)
	}
}

func stringMapArg(args map[string]interface{}, key string) (map[string]string, error) {
	raw, ok := args[key]
	if !ok {
		return nil, nil
	}
	values, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("argument %q must be a map, got %T", key, raw)
	}

	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = fmt.Sprintf("%v", v)
	}
	return result, nil
}

// sanitizeName makes a scenario or step name safe for use in a filename.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer(" ", "-", "/", "-", "\\", "-", ":", "-")
	return replacer.Replace(name)
}
