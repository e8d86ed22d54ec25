package profile

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "igwatcher/pkg/errors"
)

// Snapshot is a single observation of a profile: the picture URL as served
// by the CDN and the follower/following counts. Counts are pointers because
// a layout or locale change can leave them unknown without failing the run.
type Snapshot struct {
	Username   string
	Timestamp  time.Time
	PictureURL string
	Followers  *int64
	Following  *int64
}

// Observation is a snapshot plus the outcome of the picture comparison.
// It maps one-to-one onto a CSV log row.
type Observation struct {
	Snapshot

	// PictureUpdated is true when the normalized picture URL differed from
	// the last recorded one and the picture was downloaded.
	PictureUpdated bool

	// NormalizedPictureURL is the comparison key recorded in the state file.
	NormalizedPictureURL string

	// PicturePath is the saved file path, empty when nothing was downloaded.
	PicturePath string
}

// NormalizePictureURL strips the query string and fragment from a CDN URL
// so cache busters don't register as picture changes.
func NormalizePictureURL(raw string) (string, error) {
	if raw == "" {
		return "", apperrors.New(apperrors.ErrorTypeParsing, 0, "empty picture URL")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", apperrors.New(apperrors.ErrorTypeParsing, 0, "invalid picture URL: %v", err)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// PictureFilename builds the timestamped filename a downloaded picture is
// stored under: 20060102_150405_<username>_profile.jpg.
func PictureFilename(username string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_profile.jpg", ts.Format("20060102_150405"), username)
}

var countPattern = regexp.MustCompile(`(?i)([\d][\d.,]*)\s*([kmb])?`)

// ParseCount extracts a follower/following count from display text such as
// "1,234 followers", "10.5K" or "2m". Instagram abbreviates large counts on
// the mobile layout, so K/M/B suffixes are scaled.
func ParseCount(text string) (int64, error) {
	m := countPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, apperrors.New(apperrors.ErrorTypeParsing, 0, "no count in %q", text)
	}

	num := strings.ReplaceAll(m[1], ",", "")
	// A trailing separator ("1,234." from truncated text) is noise.
	num = strings.TrimRight(num, ".")

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, apperrors.New(apperrors.ErrorTypeParsing, 0, "bad count %q: %v", text, err)
	}

	switch strings.ToLower(m[2]) {
	case "k":
		value *= 1_000
	case "m":
		value *= 1_000_000
	case "b":
		value *= 1_000_000_000
	}

	return int64(value), nil
}

// Count returns a pointer to v, for filling optional Snapshot counts.
func Count(v int64) *int64 {
	return &v
}
