// Package console provides an interactive REPL for exercising the harness
// against a live target: opening pages, resolving locators through the
// healing engine, and issuing API requests through the retrying client.
// It is the fastest way to debug why a selector stopped matching.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"mend/internal/apiclient"
	"mend/internal/browser"
	"mend/internal/fixture"
	"mend/internal/harness"
	"mend/internal/locator"
	"mend/internal/metrics"
)

// promptPrefix brands the console prompt.
const promptPrefix = "mend"

// promptChevron separates the prefix from the input.
const promptChevron = "»"

// commandExecutionTimeout bounds individual console commands. Generous so a
// headed browser session can be inspected, but a safety net against hung
// operations.
const commandExecutionTimeout = 5 * time.Minute

// errExit signals a clean shutdown from the exit command.
var errExit = fmt.Errorf("exit")

// Options configures a console session.
type Options struct {
	// UIBaseURL prefixes relative open targets.
	UIBaseURL string

	// Browser is the launch configuration used when a command first needs
	// a page.
	Browser browser.Config

	// API configures the client behind the request commands.
	API fixture.APIDefaults

	// Healing tunes the resolve command. Nil uses the engine defaults.
	Healing *locator.Config

	// ScenarioPath is where the scenario command looks for definitions.
	ScenarioPath string

	// Verbose and Debug control scenario command output.
	Verbose bool
	Debug   bool
}

// Console is an interactive session against a live browser and API client.
// The browser is launched lazily by the first command that needs a page.
type Console struct {
	opts Options
	out  io.Writer

	rl *readline.Instance

	session  *browser.Session
	page     *browser.Page
	resolver *locator.Resolver

	client   *apiclient.Client
	recorder *metrics.Collector

	logger harness.Logger
}

// New creates a console session. Run starts the loop.
func New(opts Options) *Console {
	recorder := metrics.NewCollector()
	logger := harness.NewStdoutLogger(opts.Verbose, opts.Debug)

	client := apiclient.New(apiclient.Config{
		BaseURL:  opts.API.BaseURL,
		Timeout:  opts.API.Timeout,
		Retries:  opts.API.Retries,
		Recorder: recorder,
		Logger:   logger,
	})
	if opts.API.AuthToken != "" {
		client.SetAuthToken(opts.API.AuthToken)
	}

	return &Console{
		opts:     opts,
		out:      os.Stdout,
		client:   client,
		recorder: recorder,
		logger:   logger,
	}
}

// Run starts the console and processes commands until exit, Ctrl+D, or
// context cancellation.
func (c *Console) Run(ctx context.Context) error {
	completer := c.createCompleter()
	historyFile := filepath.Join(os.TempDir(), ".mend_console_history")

	config := &readline.Config{
		Prompt:          c.buildPrompt(),
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	c.rl = rl

	defer c.closeBrowser()

	fmt.Fprintln(c.out, "mend console started. Type 'help' for available commands. Use TAB for completion.")
	fmt.Fprintln(c.out)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out, "Console shutting down...")
			return nil
		default:
		}

		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue // Empty line on Ctrl+C, continue
			}
		} else if err == io.EOF {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := c.executeCommand(ctx, input); err != nil {
			if err == errExit {
				fmt.Fprintln(c.out, "Goodbye!")
				return nil
			}
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}

		fmt.Fprintln(c.out) // Spacing between commands
	}
}

// executeCommand parses and dispatches one line of input.
func (c *Console) executeCommand(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	commandName := strings.ToLower(parts[0])
	args := parts[1:]

	if commandName == "?" {
		commandName = "help"
	}

	// Commands get their own timeout so a stuck page wait cannot hang the
	// console forever.
	commandCtx, cancel := context.WithTimeout(ctx, commandExecutionTimeout)
	defer cancel()

	switch commandName {
	case "help":
		return c.cmdHelp()
	case "open":
		return c.cmdOpen(commandCtx, args)
	case "resolve":
		return c.cmdResolve(commandCtx, args)
	case "click":
		return c.cmdClick(commandCtx, args)
	case "fill":
		return c.cmdFill(commandCtx, args)
	case "text":
		return c.cmdText(commandCtx, args)
	case "screenshot":
		return c.cmdScreenshot(commandCtx, args)
	case "get", "post", "put", "patch", "delete":
		return c.cmdRequest(commandCtx, strings.ToUpper(commandName), args)
	case "token":
		return c.cmdToken(args)
	case "metrics":
		return c.cmdMetrics()
	case "scenarios":
		return c.cmdScenarios()
	case "scenario":
		return c.cmdScenario(commandCtx, args)
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", parts[0])
	}
}

func (c *Console) buildPrompt() string {
	return promptPrefix + " " + promptChevron + " "
}

// createCompleter builds tab completion for commands and scenario names.
func (c *Console) createCompleter() *readline.PrefixCompleter {
	scenarios, _ := harness.LoadScenariosForCompletion(c.opts.ScenarioPath)
	scenarioCompleter := make([]readline.PrefixCompleterInterface, len(scenarios))
	for i, scenario := range scenarios {
		scenarioCompleter[i] = readline.PcItem(scenario.Name)
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("?"),
		readline.PcItem("open"),
		readline.PcItem("resolve"),
		readline.PcItem("click"),
		readline.PcItem("fill"),
		readline.PcItem("text"),
		readline.PcItem("screenshot"),
		readline.PcItem("get"),
		readline.PcItem("post"),
		readline.PcItem("put"),
		readline.PcItem("patch"),
		readline.PcItem("delete"),
		readline.PcItem("token",
			readline.PcItem("clear"),
		),
		readline.PcItem("metrics"),
		readline.PcItem("scenarios"),
		readline.PcItem("scenario", scenarioCompleter...),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

// ensurePage launches the browser on first use.
func (c *Console) ensurePage(ctx context.Context) (*browser.Page, error) {
	if c.page != nil {
		return c.page, nil
	}

	session := browser.NewSession(c.opts.Browser)
	if err := session.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	page, err := session.NewPage(ctx)
	if err != nil {
		session.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	c.session = session
	c.page = page
	c.resolver = locator.New(page, c.logger)
	return page, nil
}

func (c *Console) closeBrowser() {
	if c.page != nil {
		c.page.Close()
		c.page = nil
	}
	if c.session != nil {
		c.session.Stop()
		c.session = nil
	}
	c.resolver = nil
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}
