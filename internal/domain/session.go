package domain

// Session is a copy of the authentication state. An empty token means none
// is held. User is non-nil only while AccessToken is non-empty.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
	IsLoading    bool
}

func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.AccessToken != ""
}
