package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetProfileURL(t *testing.T) {
	url := GetProfileURL("testuser")
	assert.Equal(t, "https://www.instagram.com/api/v1/users/web_profile_info/?username=testuser", url)
}

func TestGetUserPageURL(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/testuser/", GetUserPageURL("testuser"))
	assert.Equal(t, "", GetUserPageURL(""))
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		username string
		want     bool
	}{
		{"validuser", true},
		{"valid.user_123", true},
		{"", false},
		{"user name", false},
		{"user@name", false},
		{"thisusernameiswaytoolongtobevalid123", false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidUsername(tt.username))
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"@user", "user"},
		{"user/", "user"},
		{"user ", "user"},
		{"@user/ ", "user"},
		{"user", "user"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeUsername(tt.input))
	}
}
