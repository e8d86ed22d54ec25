package instagram

// ProfileResponse represents the top-level response from the
// web_profile_info endpoint.
type ProfileResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Data            Data   `json:"data"`
	Status          string `json:"status"`
}

// Data wraps the user information in the response.
type Data struct {
	User User `json:"user"`
}

// User represents an Instagram user profile.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	FullName        string    `json:"full_name"`
	IsPrivate       bool      `json:"is_private"`
	ProfilePicURL   string    `json:"profile_pic_url"`
	ProfilePicURLHD string    `json:"profile_pic_url_hd"`
	EdgeFollowedBy  EdgeCount `json:"edge_followed_by"`
	EdgeFollow      EdgeCount `json:"edge_follow"`
}

// EdgeCount wraps a single counter in Instagram's edge naming scheme.
type EdgeCount struct {
	Count int64 `json:"count"`
}

// BestPictureURL returns the HD picture URL when present, otherwise the
// standard one.
func (u *User) BestPictureURL() string {
	if u.ProfilePicURLHD != "" {
		return u.ProfilePicURLHD
	}
	return u.ProfilePicURL
}
