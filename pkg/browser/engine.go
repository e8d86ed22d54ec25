package browser

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chromedp/chromedp"

	"igwatcher/pkg/config"
	apperrors "igwatcher/pkg/errors"
	"igwatcher/pkg/instagram"
	"igwatcher/pkg/logger"
	"igwatcher/pkg/profile"
)

const (
	// renderWait bounds how long the engine polls for the profile picture
	// to appear in the rendered DOM.
	renderWait = 12 * time.Second

	renderPollInterval = 400 * time.Millisecond
)

// cookieDialogTexts are button labels of EU consent dialogs, clicked
// best-effort before scraping the page.
var cookieDialogTexts = []string{
	"Only allow essential cookies",
	"Allow all cookies",
	"Accept all",
	"Allow essential cookies",
	"Accept",
}

// Engine fetches profile snapshots by driving a headless Chrome instance
// over the DevTools protocol, emulating a mobile browser the way the
// guest view expects.
type Engine struct {
	chromePath string
	userAgent  string
	headless   bool
	timeout    time.Duration
	logger     logger.Logger
}

// NewEngine locates a browser binary and prepares a fetch engine. The
// configured ChromeDriverPath is only acknowledged in the logs: the engine
// talks to Chrome directly and never execs a WebDriver binary.
func NewEngine(cfg config.BrowserConfig, timeout time.Duration, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	chromePath, err := DetectChromeBinary(cfg.ChromePath)
	if err != nil {
		return nil, err
	}

	log.DebugWithFields("browser engine ready", map[string]interface{}{
		"chrome_path": chromePath,
	})
	if cfg.ChromeDriverPath != "" {
		log.DebugWithFields("chromedriver path provided but not needed by the DevTools engine", map[string]interface{}{
			"chromedriver_path": cfg.ChromeDriverPath,
		})
	}

	return &Engine{
		chromePath: chromePath,
		userAgent:  cfg.UserAgent,
		headless:   cfg.Headless,
		timeout:    timeout,
		logger:     log,
	}, nil
}

// FetchSnapshot loads the public profile page and extracts the picture URL
// and follow counts from the rendered DOM.
func (e *Engine) FetchSnapshot(ctx context.Context, username string) (*profile.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout+renderWait)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, e.allocatorOptions()...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	pageURL := instagram.GetUserPageURL(username)
	e.logger.DebugWithFields("loading profile page", map[string]interface{}{
		"username": username,
		"url":      pageURL,
	})

	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	); err != nil {
		return nil, apperrors.New(apperrors.ErrorTypeBrowser, 0,
			"failed to load profile page for %s: %v", username, err)
	}

	e.dismissCookieDialog(taskCtx)

	html, err := e.waitForRenderedProfile(taskCtx)
	if err != nil {
		return nil, err
	}

	snap, err := ParseProfileHTML(username, html)
	if err != nil {
		return nil, err
	}

	e.logger.DebugWithFields("profile page scraped", map[string]interface{}{
		"username": username,
	})

	return snap, nil
}

// allocatorOptions builds the Chrome launch flags: headless, CI-stable,
// and emulating an iPhone-class viewport so the guest mobile layout is
// served.
func (e *Engine) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.ExecPath(e.chromePath),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("headless", e.headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "en-US,en"),
		chromedp.WindowSize(390, 844),
	)
	if e.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(e.userAgent))
	}
	return opts
}

// dismissCookieDialog clicks through EU consent dialogs if one is shown.
// Failures are ignored: most regions never see the dialog.
func (e *Engine) dismissCookieDialog(ctx context.Context) {
	var clicked bool
	err := chromedp.Run(ctx, chromedp.Evaluate(dismissCookieDialogJS(), &clicked))
	if err != nil {
		e.logger.DebugWithFields("cookie dialog probe failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if clicked {
		e.logger.Debug("cookie consent dialog dismissed")
		// Give the page a moment to settle after the dialog closes.
		_ = chromedp.Run(ctx, chromedp.Sleep(300*time.Millisecond))
	}
}

func dismissCookieDialogJS() string {
	labels, _ := json.Marshal(cookieDialogTexts)
	return `(() => {
	const labels = ` + string(labels) + `;
	for (const label of labels) {
		for (const button of document.querySelectorAll("button")) {
			if (button.textContent && button.textContent.includes(label)) {
				button.click();
				return true;
			}
		}
	}
	return false;
})()`
}

// waitForRenderedProfile polls the DOM until the profile picture is
// locatable or the render deadline passes, returning the final HTML either
// way so parsing can surface a precise error.
func (e *Engine) waitForRenderedProfile(ctx context.Context) (string, error) {
	deadline := time.Now().Add(renderWait)

	var html string
	for {
		if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
			return "", apperrors.New(apperrors.ErrorTypeBrowser, 0,
				"failed to capture page HTML: %v", err)
		}

		if HasPicture(html) || time.Now().After(deadline) {
			return html, nil
		}

		select {
		case <-ctx.Done():
			return "", apperrors.New(apperrors.ErrorTypeBrowser, 0,
				"page render cancelled: %v", ctx.Err())
		case <-time.After(renderPollInterval):
		}
	}
}
