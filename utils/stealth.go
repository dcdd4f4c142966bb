package utils

import (
	"context"
	"math/rand"

	"github.com/chromedp/chromedp"
)

// userAgents — real browser strings rotated per session so each
// invocation looks like a different browser to the marketplace.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// StealthOpts returns Chrome launch options that hide automation
// markers and present a realistic viewport. proxy may be empty.
func StealthOpts(headless bool, proxy string) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(RandomUserAgent()),
	}

	if headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}

	return opts
}

// HideWebDriver patches JS properties the marketplace's scripts
// inspect to detect automation.
func HideWebDriver() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(`
			Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
			Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
			Object.defineProperty(navigator, 'languages', { get: () => ['de-CH', 'de', 'en'] });
		`, nil).Do(ctx)
	})
}
