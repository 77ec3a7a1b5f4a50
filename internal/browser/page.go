package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"mend/internal/locator"
)

// Page wraps a playwright page with the query surface the healing resolver
// needs plus the page-level actions scenario steps use.
type Page struct {
	page              playwright.Page
	navigationTimeout time.Duration
}

// Navigate loads a URL and waits for DOMContentLoaded. Slow single-page apps
// keep loading after that; element waits cover the rest.
func (p *Page) Navigate(ctx context.Context, url string) error {
	err := awaitErr(ctx, func() error {
		_, err := p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(p.navigationTimeout.Milliseconds())),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Press sends a key chord (for example "Enter" or "Control+a") to the
// focused element.
func (p *Page) Press(ctx context.Context, key string) error {
	return awaitErr(ctx, func() error {
		return p.page.Keyboard().Press(key)
	})
}

// Screenshot captures the full page as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return await(ctx, func() ([]byte, error) {
		return p.page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(true),
		})
	})
}

// URL returns the page's current address.
func (p *Page) URL() string {
	return p.page.URL()
}

// Title returns the current document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	return await(ctx, func() (string, error) {
		return p.page.Title()
	})
}

// Close closes the page.
func (p *Page) Close() error {
	return p.page.Close()
}

// Locate builds a query from a raw CSS or text selector.
func (p *Page) Locate(selector string) locator.Query {
	return query{loc: p.page.Locator(selector)}
}

// ByRole queries by ARIA role. Role names are lower-cased to match the
// accessibility tree.
func (p *Page) ByRole(role string) locator.Query {
	return query{loc: p.page.GetByRole(playwright.AriaRole(strings.ToLower(role)))}
}

// ByText queries by visible text, exact or substring.
func (p *Page) ByText(text string, exact bool) locator.Query {
	return query{loc: p.page.GetByText(text, playwright.PageGetByTextOptions{
		Exact: playwright.Bool(exact),
	})}
}

// ByPlaceholder queries inputs by placeholder text.
func (p *Page) ByPlaceholder(text string) locator.Query {
	return query{loc: p.page.GetByPlaceholder(text)}
}

// ByTestID queries by the data-testid attribute.
func (p *Page) ByTestID(id string) locator.Query {
	return query{loc: p.page.GetByTestId(id)}
}

// query adapts a playwright locator to the resolver's Query interface.
type query struct {
	loc playwright.Locator
}

func (q query) WaitVisible(ctx context.Context, timeout time.Duration) error {
	return awaitErr(ctx, func() error {
		return q.loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(float64(timeout.Milliseconds())),
		})
	})
}

func (q query) First() locator.Query {
	return query{loc: q.loc.First()}
}

func (q query) Click(ctx context.Context) error {
	return awaitErr(ctx, func() error {
		return q.loc.Click()
	})
}

func (q query) Fill(ctx context.Context, value string) error {
	return awaitErr(ctx, func() error {
		return q.loc.Fill(value)
	})
}

func (q query) Text(ctx context.Context) (string, error) {
	return await(ctx, func() (string, error) {
		return q.loc.InnerText()
	})
}

func (q query) Visible(ctx context.Context) (bool, error) {
	return await(ctx, func() (bool, error) {
		return q.loc.IsVisible()
	})
}
