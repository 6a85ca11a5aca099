package views

// Navigation messages
type (
	NavigateToHome      struct{}
	NavigateToSelection struct{}
	NavigateToTasks     struct{}
	NavigateToLoad      struct{}
	NavigateToRecent    struct{}
)

// NavigateToCatalog opens the catalog explorer over the remote catalog, or
// over a saved snapshot when Snapshot is set.
type NavigateToCatalog struct {
	Snapshot string
}

// SessionExpiredMsg is sent when any request was rejected as unauthorized.
type SessionExpiredMsg struct {
	Err error
}
