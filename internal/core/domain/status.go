package domain

// SyncStatus is the synchronizer's externally visible state.
type SyncStatus string

const (
	SyncStatusConnecting SyncStatus = "connecting"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusComplete   SyncStatus = "complete"
)
