package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncLoginSuccess is a no-op.
func (n *NoopRecorder) IncLoginSuccess() {}

// IncLoginFailure is a no-op.
func (n *NoopRecorder) IncLoginFailure() {}

// IncUpload is a no-op.
func (n *NoopRecorder) IncUpload() {}

// IncUploadCompensated is a no-op.
func (n *NoopRecorder) IncUploadCompensated() {}

// IncFolderCreated is a no-op.
func (n *NoopRecorder) IncFolderCreated() {}

// IncItemDeleted is a no-op.
func (n *NoopRecorder) IncItemDeleted() {}

// IncDeleteRetryQueued is a no-op.
func (n *NoopRecorder) IncDeleteRetryQueued() {}

// IncURLCacheHit is a no-op.
func (n *NoopRecorder) IncURLCacheHit() {}

// IncURLCacheMiss is a no-op.
func (n *NoopRecorder) IncURLCacheMiss() {}

// IncJanitorCleanup is a no-op.
func (n *NoopRecorder) IncJanitorCleanup() {}

// IncJanitorRetryFailed is a no-op.
func (n *NoopRecorder) IncJanitorRetryFailed() {}
