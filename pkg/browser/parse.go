package browser

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "igwatcher/pkg/errors"
	"igwatcher/pkg/profile"
)

// pictureSelectors are tried in order against the rendered mobile page.
// The og:image meta tag is the final fallback when the <img> is not
// directly reachable (interstitials, layout experiments).
var pictureSelectors = []string{
	"img[alt$='profile picture']",
	"img[alt*='profile picture']",
	"header img[alt$='profile picture']",
	"header a img",
}

var (
	followersPattern = regexp.MustCompile(`(?i)([\d][\d.,]*\s*[KMB]?)\s+followers`)
	followingPattern = regexp.MustCompile(`(?i)([\d][\d.,]*\s*[KMB]?)\s+following`)
)

// ParseProfileHTML extracts a profile snapshot from the rendered HTML of a
// profile page. It fails only when no picture URL can be located; missing
// counts are reported as nil so the observation still gets logged.
func ParseProfileHTML(username, html string) (*profile.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrorTypeParsing, 0, "failed to parse profile HTML: %v", err)
	}

	pictureURL := extractPictureURL(doc)
	if pictureURL == "" {
		return nil, apperrors.New(apperrors.ErrorTypeParsing, 0,
			"could not locate profile picture for %s on the page", username)
	}

	followers, following := extractCounts(doc)

	return &profile.Snapshot{
		Username:   username,
		Timestamp:  time.Now(),
		PictureURL: pictureURL,
		Followers:  followers,
		Following:  following,
	}, nil
}

// HasPicture reports whether the HTML already contains a locatable profile
// picture, used to poll until the page has rendered far enough.
func HasPicture(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return extractPictureURL(doc) != ""
}

func extractPictureURL(doc *goquery.Document) string {
	for _, sel := range pictureSelectors {
		if src, ok := doc.Find(sel).First().Attr("src"); ok && src != "" {
			return src
		}
	}

	if content, ok := doc.Find("meta[property='og:image']").Attr("content"); ok && content != "" {
		return content
	}

	return ""
}

// extractCounts prefers the two header buttons of the mobile layout
// ("xx followers", "yy following") and falls back to the meta description
// ("105 followers, 128 following, 6 posts - ...").
func extractCounts(doc *goquery.Document) (followers, following *int64) {
	buttons := doc.Find("header section button")
	if buttons.Length() >= 2 {
		if v, err := profile.ParseCount(buttons.Eq(0).Text()); err == nil {
			followers = profile.Count(v)
		}
		if v, err := profile.ParseCount(buttons.Eq(1).Text()); err == nil {
			following = profile.Count(v)
		}
		if followers != nil || following != nil {
			return followers, following
		}
	}

	desc, _ := doc.Find("meta[name='description']").Attr("content")
	if desc == "" {
		return nil, nil
	}

	if m := followersPattern.FindStringSubmatch(desc); m != nil {
		if v, err := profile.ParseCount(m[1]); err == nil {
			followers = profile.Count(v)
		}
	}
	if m := followingPattern.FindStringSubmatch(desc); m != nil {
		if v, err := profile.ParseCount(m[1]); err == nil {
			following = profile.Count(v)
		}
	}

	return followers, following
}
