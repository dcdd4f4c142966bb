package ricardo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"ricardo-scout/config"
	"ricardo-scout/utils"
)

// ErrSessionStart marks a failed browser launch. It is fatal for the
// invocation and must be surfaced to the user, never retried silently.
var ErrSessionStart = errors.New("browser session start failed")

// Manager hands out isolated browser sessions, one per command
// invocation. Sessions never share browser state, so concurrent
// invocations cannot bleed cookies or tabs into each other.
type Manager struct {
	cfg *config.Config
	log *slog.Logger

	mu       sync.Mutex
	proxyIdx int
}

func NewManager(cfg *config.Config, log *slog.Logger) *Manager {
	return &Manager{cfg: cfg, log: log}
}

// nextProxy round-robins over the configured proxy list. Empty list
// means direct connections.
func (m *Manager) nextProxy() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.cfg.Proxies) == 0 {
		return ""
	}
	p := m.cfg.Proxies[m.proxyIdx%len(m.cfg.Proxies)]
	m.proxyIdx++
	return p
}

// Session is one headless browser instance scoped to a single
// invocation. Release closes it on every path, including cancellation:
// the underlying contexts derive from the caller's ctx, so tearing
// down the invocation tears down the browser too.
type Session struct {
	cfg     *config.Config
	log     *slog.Logger
	ctx     context.Context
	release func()
	once    sync.Once
}

// Acquire launches a browser and verifies it actually started.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	proxy := m.nextProxy()
	opts := utils.StealthOpts(m.cfg.Headless, proxy)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// A run with no actions forces the browser process to launch.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrSessionStart, err)
	}

	if proxy != "" {
		m.log.Debug("browser session started", "proxy", proxy)
	} else {
		m.log.Debug("browser session started")
	}

	return &Session{
		cfg: m.cfg,
		log: m.log,
		ctx: tabCtx,
		release: func() {
			tabCancel()
			allocCancel()
		},
	}, nil
}

func (s *Session) Release() {
	s.once.Do(s.release)
}

// FetchPage navigates to url and returns the rendered page HTML.
// The page budget is cfg.PageTimeout; the Next.js payload gets a short
// settle window after the document is ready.
func (s *Session) FetchPage(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(s.ctx, s.cfg.PageTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		utils.HideWebDriver(),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	return html, nil
}
