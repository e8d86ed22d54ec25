// Package watcher orchestrates a profile watch run: fetch each profile,
// detect picture changes against the saved state, download changed
// pictures and append one journal row per profile.
package watcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"igwatcher/internal/checker"
	"igwatcher/pkg/auth"
	"igwatcher/pkg/browser"
	"igwatcher/pkg/config"
	"igwatcher/pkg/csvlog"
	errs "igwatcher/pkg/errors"
	"igwatcher/pkg/instagram"
	"igwatcher/pkg/logger"
	"igwatcher/pkg/profile"
	"igwatcher/pkg/ratelimit"
	"igwatcher/pkg/retry"
	"igwatcher/pkg/state"
	"igwatcher/pkg/storage"
)

// RunSummary reports what one watch run did.
type RunSummary struct {
	Checked    int
	Updated    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Watcher checks a set of profiles for picture changes.
type Watcher struct {
	cfg         *config.Config
	apiFetcher  Fetcher
	browser     Fetcher
	downloader  PhotoDownloader
	journal     Journal
	stateStore  StateStore
	pictures    PictureStorage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger

	// runMu serializes RunOnce so concurrent callers never interleave
	// journal rows or state writes.
	runMu sync.Mutex
}

// New wires a watcher from configuration. The browser engine is only set
// up when the fetch engine allows it, so api-only deployments need no
// Chrome binary.
func New(cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	client := instagram.NewClient(cfg.Fetch.Timeout, log)
	if cfg.Instagram.UserAgent != "" {
		client.SetUserAgent(cfg.Instagram.UserAgent)
	}
	applySession(client, cfg, log)

	var browserFetcher Fetcher
	if cfg.Fetch.Engine == config.EngineBrowser || cfg.Fetch.Engine == config.EngineAuto {
		engine, err := browser.NewEngine(cfg.Browser, cfg.Fetch.Timeout, log)
		if err != nil {
			if cfg.Fetch.Engine == config.EngineBrowser {
				return nil, fmt.Errorf("browser engine unavailable: %w", err)
			}
			log.WarnWithFields("browser engine unavailable, api only", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			browserFetcher = engine
		}
	}

	journal, err := csvlog.NewJournal(cfg.Output.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	pictures, err := storage.NewManager(cfg.Output.PicsDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to set up pictures directory: %w", err)
	}

	return &Watcher{
		cfg:         cfg,
		apiFetcher:  client,
		browser:     browserFetcher,
		downloader:  client,
		journal:     journal,
		stateStore:  state.NewStore(cfg.Output.StateFile, log),
		pictures:    pictures,
		rateLimiter: ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
		logger:      log,
	}, nil
}

// applySession attaches session cookies to the client: config first, then
// the stored session chain.
func applySession(client *instagram.Client, cfg *config.Config, log logger.Logger) {
	if cfg.Instagram.SessionID != "" && cfg.Instagram.CSRFToken != "" {
		client.SetSession(cfg.Instagram.SessionID, cfg.Instagram.CSRFToken)
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.DebugWithFields("session manager unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	session, err := manager.RetrieveDefault()
	if err != nil {
		log.Debug("no stored session, fetching anonymously")
		return
	}

	client.SetSession(session.SessionID, session.CSRFToken)
	if session.UserAgent != "" {
		client.SetUserAgent(session.UserAgent)
	}
	log.InfoWithFields("using stored session", map[string]interface{}{
		"label": session.Label,
	})
}

// RunOnce performs a single watch pass over all configured usernames. It
// returns a summary even when some checks failed; the error is non-nil if
// any profile could not be checked.
func (w *Watcher) RunOnce(ctx context.Context) (*RunSummary, error) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	summary := &RunSummary{StartedAt: time.Now()}

	stateFile, err := w.stateStore.Load()
	if err != nil {
		return summary, fmt.Errorf("failed to load state: %w", err)
	}

	usernames := w.cfg.Watch.Usernames
	w.logger.InfoWithFields("starting watch run", map[string]interface{}{
		"profiles": len(usernames),
		"workers":  w.cfg.Watch.Workers,
		"engine":   w.cfg.Fetch.Engine,
	})

	pool := checker.NewWorkerPool(ctx, w.cfg.Watch.Workers, &profileChecker{w: w, state: stateFile}, w.rateLimiter, w.logger)
	pool.Start()

	// checkErrs is owned by the consumer goroutine until g.Wait returns;
	// submit failures go into their own slice and are merged afterwards.
	var checkErrs []error

	var g errgroup.Group
	g.Go(func() error {
		// Journal appends and state updates are serialized here so the
		// CSV rows never interleave. State is only updated after the
		// row is written; a failed append leaves the old URL in place
		// and the next run re-detects the change.
		for result := range pool.Results() {
			summary.Checked++

			if result.Err != nil {
				summary.Failed++
				checkErrs = append(checkErrs, fmt.Errorf("%s: %w", result.Job.Username, result.Err))
				continue
			}

			obs := result.Observation
			if err := w.journal.Append(*obs); err != nil {
				summary.Failed++
				checkErrs = append(checkErrs, fmt.Errorf("%s: journal append: %w", obs.Username, err))
				continue
			}

			stateFile.Set(obs.Username, obs.NormalizedPictureURL)
			if obs.PictureUpdated {
				summary.Updated++
			}
		}
		return nil
	})

	var submitErrs []error
	for _, username := range usernames {
		if err := pool.Submit(checker.CheckJob{Username: username}); err != nil {
			submitErrs = append(submitErrs, fmt.Errorf("%s: %w", username, err))
			break
		}
	}
	pool.Stop()

	_ = g.Wait()
	checkErrs = append(checkErrs, submitErrs...)

	if err := w.stateStore.Save(stateFile); err != nil {
		checkErrs = append(checkErrs, fmt.Errorf("failed to save state: %w", err))
	}

	summary.FinishedAt = time.Now()
	w.logger.InfoWithFields("watch run finished", map[string]interface{}{
		"checked":  summary.Checked,
		"updated":  summary.Updated,
		"failed":   summary.Failed,
		"duration": summary.FinishedAt.Sub(summary.StartedAt).String(),
	})

	if len(checkErrs) > 0 {
		return summary, errors.Join(checkErrs...)
	}
	return summary, nil
}

// Run checks all profiles once immediately, then again on every interval
// tick until the context is cancelled. RunOnce is called synchronously in
// the loop, so a run that outlasts the interval delays the next tick
// rather than overlapping it.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.ErrorWithFields("watch run failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorWithFields("watch run failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// profileChecker adapts the watcher to the worker pool's Checker
// interface, carrying the state file for the current run.
type profileChecker struct {
	w     *Watcher
	state *state.File
}

func (pc *profileChecker) CheckProfile(ctx context.Context, username string) (*profile.Observation, error) {
	return pc.w.checkProfile(ctx, username, pc.state)
}

// checkProfile fetches one profile, compares its picture URL with the
// last recorded one, and downloads the picture when it changed.
func (w *Watcher) checkProfile(ctx context.Context, username string, stateFile *state.File) (*profile.Observation, error) {
	snapshot, err := w.fetchSnapshot(ctx, username)
	if err != nil {
		logger.LogFetch(username, w.cfg.Fetch.Engine, false, err)
		return nil, err
	}
	logger.LogFetch(username, w.cfg.Fetch.Engine, true, nil)

	normalized, err := profile.NormalizePictureURL(snapshot.PictureURL)
	if err != nil {
		return nil, err
	}

	obs := &profile.Observation{
		Snapshot:             *snapshot,
		NormalizedPictureURL: normalized,
	}

	lastURL, seen := stateFile.Get(username)
	if seen && lastURL == normalized {
		return obs, nil
	}

	obs.PictureUpdated = true

	path, err := w.downloadPicture(ctx, snapshot)
	if err != nil {
		// No row and no state update; the next run sees the same URL
		// difference and retries the download.
		return nil, err
	}
	obs.PicturePath = path

	return obs, nil
}

// fetchSnapshot picks the fetch engine. In auto mode the API endpoint is
// tried first and the browser takes over when Instagram walls it off.
func (w *Watcher) fetchSnapshot(ctx context.Context, username string) (*profile.Snapshot, error) {
	retryCfg := retry.FromConfig(ctx, w.cfg.Retry, w.logger)

	switch w.cfg.Fetch.Engine {
	case config.EngineBrowser:
		if w.browser == nil {
			return nil, errs.New(errs.ErrorTypeBrowser, 0, "browser engine not available")
		}
		return retry.DoWithResult(func() (*profile.Snapshot, error) {
			return w.browser.FetchSnapshot(ctx, username)
		}, retryCfg)

	case config.EngineAPI:
		return retry.DoWithResult(func() (*profile.Snapshot, error) {
			return w.apiFetcher.FetchSnapshot(ctx, username)
		}, retryCfg)

	default: // auto
		snapshot, err := retry.DoWithResult(func() (*profile.Snapshot, error) {
			return w.apiFetcher.FetchSnapshot(ctx, username)
		}, retryCfg)
		if err == nil {
			return snapshot, nil
		}

		if w.browser != nil && shouldFallBack(err) {
			w.logger.WarnWithFields("api fetch walled off, falling back to browser", map[string]interface{}{
				"username": username,
				"error":    err.Error(),
			})
			return retry.DoWithResult(func() (*profile.Snapshot, error) {
				return w.browser.FetchSnapshot(ctx, username)
			}, retryCfg)
		}
		return nil, err
	}
}

// shouldFallBack reports whether an API failure is the kind the browser
// engine can get around: the login wall and rate limiting.
func shouldFallBack(err error) bool {
	var typedErr *errs.Error
	if errors.As(err, &typedErr) {
		return typedErr.Type == errs.ErrorTypeAuth || typedErr.Type == errs.ErrorTypeRateLimit
	}
	return false
}

// downloadPicture fetches the picture bytes and stores them under the
// timestamped filename. The download counts against the same rate limiter
// as the profile fetch.
func (w *Watcher) downloadPicture(ctx context.Context, snapshot *profile.Snapshot) (string, error) {
	if w.rateLimiter != nil {
		if err := w.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait cancelled: %w", err)
		}
	}

	retryCfg := retry.FromConfig(ctx, w.cfg.Retry, w.logger)

	data, err := retry.DoWithResult(func() ([]byte, error) {
		return w.downloader.DownloadPhoto(ctx, snapshot.PictureURL)
	}, retryCfg)
	if err != nil {
		logger.LogDownload(snapshot.Username, "", false, err)
		return "", fmt.Errorf("failed to download picture: %w", err)
	}

	filename := profile.PictureFilename(snapshot.Username, snapshot.Timestamp)
	path, err := w.pictures.SavePicture(bytes.NewReader(data), filename)
	if err != nil {
		logger.LogDownload(snapshot.Username, filename, false, err)
		return "", fmt.Errorf("failed to save picture: %w", err)
	}

	logger.LogDownload(snapshot.Username, filename, true, nil)
	return path, nil
}
