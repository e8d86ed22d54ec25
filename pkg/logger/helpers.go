package logger

// LogFetch logs the outcome of a profile fetch.
func LogFetch(username, engine string, success bool, err error) {
	fields := map[string]interface{}{
		"username": username,
		"engine":   engine,
		"success":  success,
	}

	l := GetLogger().WithFields(fields)

	if err != nil {
		l.WithError(err).Error("Profile fetch failed")
	} else {
		l.Debug("Profile fetched")
	}
}

// LogDownload logs picture download operations.
func LogDownload(username, filename string, success bool, err error) {
	fields := map[string]interface{}{
		"username": username,
		"filename": filename,
		"success":  success,
	}

	l := GetLogger().WithFields(fields)

	if err != nil {
		l.WithError(err).Error("Picture download failed")
	} else if success {
		l.Info("Picture downloaded")
	} else {
		l.Debug("Picture unchanged, download skipped")
	}
}

// LogRateLimit logs rate limiting events.
func LogRateLimit(endpoint string, retryAfter int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfter,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}
