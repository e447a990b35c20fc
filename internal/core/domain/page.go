package domain

// Page is a session-bound handle to a wiki page, resolved by title.
// Handles resolved before a relogin are stale and must be re-resolved;
// the client layer re-resolves per attempt instead of caching.
type Page struct {
	Title     string
	ID        int64
	Missing   bool
	Redirect  bool
	LastRevID int64
	Protected bool // edit-protected for the current user
}
