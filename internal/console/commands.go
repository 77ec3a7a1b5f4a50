package console

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"mend/internal/apiclient"
	"mend/internal/fixture"
	"mend/internal/formatting"
	"mend/internal/harness"
	"mend/internal/locator"
)

func (c *Console) cmdHelp() error {
	fmt.Fprintln(c.out, "Available commands:")
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Browser:")
	fmt.Fprintln(c.out, "  open <url>                        Navigate to a URL (relative paths use the base URL)")
	fmt.Fprintln(c.out, "  resolve <selector> [hint=value]   Resolve a locator through the healing chain")
	fmt.Fprintln(c.out, "  click <selector> [hint=value]     Resolve and click an element")
	fmt.Fprintln(c.out, "  fill <selector> <value>           Resolve an input and fill it")
	fmt.Fprintln(c.out, "  text <selector>                   Print an element's visible text")
	fmt.Fprintln(c.out, "  screenshot [path]                 Capture the current page")
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "  Hints for resolve/click: role=button text=Submit placeholder=Email testid=save-btn")
	fmt.Fprintln(c.out, "  Hint values cannot contain spaces.")
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "API:")
	fmt.Fprintln(c.out, "  get|post|put|patch|delete <url> [body]   Issue a request (body is JSON or raw text)")
	fmt.Fprintln(c.out, "  token <value> | token clear | token      Manage the bearer token")
	fmt.Fprintln(c.out, "  metrics                                  Show response time statistics")
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Scenarios:")
	fmt.Fprintln(c.out, "  scenarios                         List available scenarios")
	fmt.Fprintln(c.out, "  scenario <name>                   Run one scenario")
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "General:")
	fmt.Fprintln(c.out, "  help, ?                           Show this help")
	fmt.Fprintln(c.out, "  exit, quit                        Leave the console")
	return nil
}

func (c *Console) cmdOpen(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open <url>")
	}

	page, err := c.ensurePage(ctx)
	if err != nil {
		return err
	}

	target := joinURL(c.opts.UIBaseURL, args[0])
	if err := page.Navigate(ctx, target); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}

	title, err := page.Title(ctx)
	if err != nil {
		title = "(unknown title)"
	}
	fmt.Fprintf(c.out, "Opened %s\n", page.URL())
	fmt.Fprintf(c.out, "Title: %s\n", title)
	return nil
}

func (c *Console) cmdResolve(ctx context.Context, args []string) error {
	selector, ectx, err := parseElementArgs(args)
	if err != nil {
		return err
	}

	resolution, err := c.resolveElement(ctx, selector, ectx)
	if err != nil {
		return err
	}

	c.printResolution(selector, resolution)
	return nil
}

func (c *Console) cmdClick(ctx context.Context, args []string) error {
	selector, ectx, err := parseElementArgs(args)
	if err != nil {
		return err
	}

	resolution, err := c.resolveElement(ctx, selector, ectx)
	if err != nil {
		return err
	}

	if err := resolution.Element.Click(ctx); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}

	c.printResolution(selector, resolution)
	fmt.Fprintf(c.out, "Clicked %s\n", selector)
	return nil
}

func (c *Console) cmdFill(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: fill <selector> <value>")
	}
	selector := args[0]
	value := strings.Join(args[1:], " ")

	resolution, err := c.resolveElement(ctx, selector, locator.ElementContext{OriginalSelector: selector})
	if err != nil {
		return err
	}

	if err := resolution.Element.Fill(ctx, value); err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}

	c.printResolution(selector, resolution)
	fmt.Fprintf(c.out, "Filled %s\n", selector)
	return nil
}

func (c *Console) cmdText(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: text <selector>")
	}
	selector := args[0]

	resolution, err := c.resolveElement(ctx, selector, locator.ElementContext{OriginalSelector: selector})
	if err != nil {
		return err
	}

	text, err := resolution.Element.Text(ctx)
	if err != nil {
		return fmt.Errorf("failed to read text of %s: %w", selector, err)
	}

	c.printResolution(selector, resolution)
	fmt.Fprintln(c.out, text)
	return nil
}

func (c *Console) cmdScreenshot(ctx context.Context, args []string) error {
	if c.page == nil {
		return fmt.Errorf("no page open, use 'open' first")
	}

	path := fmt.Sprintf("screenshot-%s.png", time.Now().Format("20060102-150405"))
	if len(args) > 0 {
		path = args[0]
	}

	data, err := c.page.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(c.out, "Saved %s (%d bytes)\n", path, len(data))
	return nil
}

func (c *Console) cmdRequest(ctx context.Context, method string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <url> [body]", strings.ToLower(method))
	}
	target := args[0]

	opts := &apiclient.RequestOptions{}
	if len(args) > 1 {
		raw := strings.Join(args[1:], " ")
		var parsed interface{}
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			opts.Body = parsed
		} else {
			opts.Body = raw
		}
	}

	response, err := c.client.Do(ctx, method, target, opts)
	if err != nil {
		return err
	}

	c.printResponse(response)
	return nil
}

func (c *Console) cmdToken(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "usage: token <value> to set, token clear to remove")
		return nil
	}

	if args[0] == "clear" {
		c.client.ClearAuthToken()
		fmt.Fprintln(c.out, "Auth token cleared")
		return nil
	}

	c.client.SetAuthToken(args[0])
	fmt.Fprintln(c.out, "Auth token set")
	return nil
}

func (c *Console) cmdMetrics() error {
	summary := c.recorder.Snapshot()
	if summary.Count == 0 {
		fmt.Fprintln(c.out, "No API requests recorded yet")
		return nil
	}

	fmt.Fprintf(c.out, "API requests: %d\n", summary.Count)
	fmt.Fprintf(c.out, "  min:  %s\n", summary.Min.Round(time.Millisecond))
	fmt.Fprintf(c.out, "  max:  %s\n", summary.Max.Round(time.Millisecond))
	fmt.Fprintf(c.out, "  mean: %s\n", summary.Mean.Round(time.Millisecond))
	fmt.Fprintf(c.out, "  p95:  %s\n", summary.P95.Round(time.Millisecond))
	return nil
}

func (c *Console) cmdScenarios() error {
	loader := harness.NewScenarioLoader(c.opts.Debug)
	scenarios, err := loader.LoadScenarios(harness.GetScenarioPath(c.opts.ScenarioPath))
	if err != nil {
		return fmt.Errorf("failed to load scenarios: %w", err)
	}

	formatting.RenderScenarios(c.out, scenarios, false)
	return nil
}

func (c *Console) cmdScenario(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: scenario <name>")
	}

	config := harness.DefaultConfiguration()
	config.Scenario = args[0]
	config.ScenarioPath = harness.GetScenarioPath(c.opts.ScenarioPath)
	config.Verbose = c.opts.Verbose
	config.Debug = c.opts.Debug

	// Scenario runs get their own fixtures so a crashed scenario browser
	// cannot take the console session down with it.
	envs := fixture.NewManager(fixture.Defaults{
		UIBaseURL: c.opts.UIBaseURL,
		Browser:   c.opts.Browser,
		API:       c.opts.API,
	})
	defer envs.Close()

	framework := harness.NewFrameworkForMode(harness.ExecutionModeCLI, config, envs, c.recorder)
	scenarios, err := harness.LoadAndFilterScenarios(config.ScenarioPath, config, framework.Logger)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenario named %q in %s", args[0], config.ScenarioPath)
	}

	result, err := framework.Runner.Run(ctx, config, scenarios)
	if err != nil {
		return err
	}
	if result.FailedScenarios > 0 || result.ErrorScenarios > 0 {
		return fmt.Errorf("scenario %q did not pass", args[0])
	}
	return nil
}

// resolveElement runs one locator resolution with the console's healing
// configuration.
func (c *Console) resolveElement(ctx context.Context, selector string, ectx locator.ElementContext) (*locator.Resolution, error) {
	page, err := c.ensurePage(ctx)
	if err != nil {
		return nil, err
	}
	return c.resolver.Resolve(ctx, page.Locate(selector).First(), ectx, c.opts.Healing)
}

func (c *Console) printResolution(selector string, resolution *locator.Resolution) {
	if resolution.Healed {
		fmt.Fprintf(c.out, "⚠ %s healed via %q in %s. Update the stale selector.\n",
			selector, resolution.Strategy, resolution.Elapsed.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(c.out, "✓ %s resolved via primary locator in %s\n",
		selector, resolution.Elapsed.Round(time.Millisecond))
}

func (c *Console) printResponse(response *apiclient.Response) {
	fmt.Fprintf(c.out, "%s %s\n", response.Method, response.URL)
	fmt.Fprintf(c.out, "%d %s (%s)\n", response.Status, response.StatusText, response.Duration.Round(time.Millisecond))
	if response.RawBody != "" {
		fmt.Fprintln(c.out, formatting.PrettyJSON(response.Body))
	}
}

// parseElementArgs splits "selector hint=value ..." into the selector and the
// healing hints. Hint values cannot contain spaces; quoting is not supported.
func parseElementArgs(args []string) (string, locator.ElementContext, error) {
	if len(args) < 1 {
		return "", locator.ElementContext{}, fmt.Errorf("usage: <selector> [role=... text=... placeholder=... testid=...]")
	}

	selector := args[0]
	ectx := locator.ElementContext{OriginalSelector: selector}

	for _, arg := range args[1:] {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return "", locator.ElementContext{}, fmt.Errorf("invalid hint %q, expected key=value", arg)
		}
		switch strings.ToLower(key) {
		case "role":
			ectx.Role = value
		case "text":
			ectx.Text = value
		case "placeholder":
			ectx.Placeholder = value
		case "testid", "test_id":
			ectx.TestID = value
		default:
			return "", locator.ElementContext{}, fmt.Errorf("unknown hint %q, expected role, text, placeholder or testid", key)
		}
	}

	return selector, ectx, nil
}

// joinURL joins a relative target onto the UI base URL, matching the navigate
// action's resolution so console sessions and scenarios agree on URLs.
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
