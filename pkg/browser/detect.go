package browser

import (
	"os"
	"os/exec"

	apperrors "igwatcher/pkg/errors"
)

// chromeCandidates are common Chrome/Chromium locations checked when no
// explicit path is configured. Bare names are resolved via PATH.
var chromeCandidates = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/snap/bin/chromium",
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"google-chrome",
	"chromium-browser",
	"chromium",
}

// DetectChromeBinary picks a browser binary: the configured path wins
// (CHROME_PATH from the CI workflow ends up here), then well-known
// locations, then PATH lookup.
func DetectChromeBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		return "", apperrors.New(apperrors.ErrorTypeBrowser, 0,
			"configured browser binary %q does not exist", configured)
	}

	for _, candidate := range chromeCandidates {
		if isBareName(candidate) {
			if path, err := exec.LookPath(candidate); err == nil {
				return path, nil
			}
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", apperrors.New(apperrors.ErrorTypeBrowser, 0,
		"could not locate a Chrome/Chromium binary; set CHROME_PATH or CHROME_BIN")
}

func isBareName(path string) bool {
	for _, r := range path {
		if r == '/' || r == '\\' {
			return false
		}
	}
	return true
}
