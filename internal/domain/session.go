package domain

// Session is the public view of a browser's authentication state. The token
// itself never leaves the BFF.
type Session struct {
	Token    string `json:"-"`
	LoggedIn bool   `json:"loggedIn"`
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
}
