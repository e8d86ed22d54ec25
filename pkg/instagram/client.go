package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "igwatcher/pkg/errors"
	"igwatcher/pkg/logger"
	"igwatcher/pkg/profile"
)

// Client is an HTTP client for Instagram's web API.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a new Instagram API client.
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
			"X-IG-App-ID":     "936619743392459",
		},
		logger: log,
	}
}

// SetHeader sets a custom header for the client.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetUserAgent overrides the default user agent.
func (c *Client) SetUserAgent(userAgent string) {
	if userAgent != "" {
		c.headers["User-Agent"] = userAgent
	}
}

// SetSession attaches session cookies for profiles behind a login wall.
func (c *Client) SetSession(sessionID, csrfToken string) {
	var cookies []string
	if sessionID != "" {
		cookies = append(cookies, fmt.Sprintf("sessionid=%s", sessionID))
	}
	if csrfToken != "" {
		cookies = append(cookies, fmt.Sprintf("csrftoken=%s", csrfToken))
		c.headers["x-csrftoken"] = csrfToken
	}
	if len(cookies) > 0 {
		c.headers["Cookie"] = strings.Join(cookies, "; ")
	}
}

// doRequest performs an HTTP request with the configured headers.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, apperrors.New(apperrors.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Get performs a GET request to the specified URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}

	return c.doRequest(req)
}

// GetJSON performs a GET request and decodes the JSON response.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.New(apperrors.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return apperrors.New(apperrors.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return nil
}

// checkResponseStatus maps HTTP response status codes to typed errors.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return apperrors.New(apperrors.ErrorTypeAuth, resp.StatusCode, "authentication required")
	case http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return apperrors.New(apperrors.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	case http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		logger.LogRateLimit(resp.Request.URL.Path, retryAfter)
		return apperrors.New(apperrors.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return apperrors.New(apperrors.ErrorTypeServerError, resp.StatusCode, "server error")
	default:
		if resp.StatusCode >= 400 {
			c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
				"status": resp.StatusCode,
				"url":    resp.Request.URL.String(),
			})
			return apperrors.New(apperrors.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
		}
		return nil
	}
}

// FetchProfile fetches the user's profile data from the web API.
func (c *Client) FetchProfile(ctx context.Context, username string) (*ProfileResponse, error) {
	url := GetProfileURL(username)

	c.logger.DebugWithFields("fetching user profile", map[string]interface{}{
		"username": username,
		"url":      url,
	})

	var response ProfileResponse
	if err := c.GetJSON(ctx, url, &response); err != nil {
		c.logger.ErrorWithFields("failed to fetch user profile", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return nil, err
	}

	if response.RequiresToLogin {
		c.logger.WarnWithFields("authentication required for profile", map[string]interface{}{
			"username": username,
		})
		return nil, apperrors.New(apperrors.ErrorTypeAuth, http.StatusUnauthorized,
			"Instagram requires authentication to view this profile")
	}

	return &response, nil
}

// FetchSnapshot fetches a profile and converts it into a domain snapshot.
// It satisfies the watcher's Fetcher interface.
func (c *Client) FetchSnapshot(ctx context.Context, username string) (*profile.Snapshot, error) {
	response, err := c.FetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	user := response.Data.User
	pictureURL := user.BestPictureURL()
	if pictureURL == "" {
		return nil, apperrors.New(apperrors.ErrorTypeParsing, 0,
			"profile response for %s has no picture URL", username)
	}

	snap := &profile.Snapshot{
		Username:   username,
		Timestamp:  time.Now(),
		PictureURL: pictureURL,
		Followers:  profile.Count(user.EdgeFollowedBy.Count),
		Following:  profile.Count(user.EdgeFollow.Count),
	}

	c.logger.DebugWithFields("profile snapshot fetched", map[string]interface{}{
		"username":  username,
		"followers": user.EdgeFollowedBy.Count,
		"following": user.EdgeFollow.Count,
	})

	return snap, nil
}

// DownloadPhoto downloads a photo from the given URL.
func (c *Client) DownloadPhoto(ctx context.Context, photoURL string) ([]byte, error) {
	c.logger.DebugWithFields("downloading photo", map[string]interface{}{
		"url": photoURL,
	})

	resp, err := c.Get(ctx, photoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrorTypeNetwork, 0, "failed to download photo: %v", err)
	}

	c.logger.DebugWithFields("photo downloaded", map[string]interface{}{
		"url":  photoURL,
		"size": len(data),
	})

	return data, nil
}
