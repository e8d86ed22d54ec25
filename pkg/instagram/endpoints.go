package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram.
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint is the endpoint pattern for user profiles.
	ProfileEndpoint = "/api/v1/users/web_profile_info/"
)

// GetProfileURL constructs the URL for fetching a user's profile data.
func GetProfileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)

	return fmt.Sprintf("%s%s?%s", BaseURL, ProfileEndpoint, params.Encode())
}

// GetUserPageURL constructs the public profile page URL, as loaded by the
// browser engine.
func GetUserPageURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// IsValidUsername checks if a username is valid according to Instagram rules.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername removes any invalid characters from a username.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	// Remove @ symbol if present at the beginning
	if username[0] == '@' {
		username = username[1:]
	}

	// Remove any trailing slashes or spaces
	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
