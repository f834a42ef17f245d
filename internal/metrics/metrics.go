// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Auth metrics
	IncUserRegistered()
	IncLoginSuccess()
	IncLoginFailure()

	// Vault metrics
	IncUpload()
	IncUploadCompensated()
	IncFolderCreated()
	IncItemDeleted()
	IncDeleteRetryQueued()

	// URL metrics
	IncURLCacheHit()
	IncURLCacheMiss()

	// Janitor metrics
	IncJanitorCleanup()
	IncJanitorRetryFailed()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
