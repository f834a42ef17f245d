package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered     uint64
	LoginSuccesses      uint64
	LoginFailures       uint64
	Uploads             uint64
	UploadsCompensated  uint64
	FoldersCreated      uint64
	ItemsDeleted        uint64
	DeleteRetriesQueued uint64
	URLCacheHits        uint64
	URLCacheMisses      uint64
	JanitorCleanups     uint64
	JanitorRetryFails   uint64
}

// InMemoryRecorder stores metrics in memory for tests and debugging.
type InMemoryRecorder struct {
	usersRegistered     uint64
	loginSuccesses      uint64
	loginFailures       uint64
	uploads             uint64
	uploadsCompensated  uint64
	foldersCreated      uint64
	itemsDeleted        uint64
	deleteRetriesQueued uint64
	urlCacheHits        uint64
	urlCacheMisses      uint64
	janitorCleanups     uint64
	janitorRetryFails   uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersRegistered:     atomic.LoadUint64(&m.usersRegistered),
		LoginSuccesses:      atomic.LoadUint64(&m.loginSuccesses),
		LoginFailures:       atomic.LoadUint64(&m.loginFailures),
		Uploads:             atomic.LoadUint64(&m.uploads),
		UploadsCompensated:  atomic.LoadUint64(&m.uploadsCompensated),
		FoldersCreated:      atomic.LoadUint64(&m.foldersCreated),
		ItemsDeleted:        atomic.LoadUint64(&m.itemsDeleted),
		DeleteRetriesQueued: atomic.LoadUint64(&m.deleteRetriesQueued),
		URLCacheHits:        atomic.LoadUint64(&m.urlCacheHits),
		URLCacheMisses:      atomic.LoadUint64(&m.urlCacheMisses),
		JanitorCleanups:     atomic.LoadUint64(&m.janitorCleanups),
		JanitorRetryFails:   atomic.LoadUint64(&m.janitorRetryFails),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLoginSuccess increments the successful login counter.
func (m *InMemoryRecorder) IncLoginSuccess() {
	atomic.AddUint64(&m.loginSuccesses, 1)
}

// IncLoginFailure increments the failed login counter.
func (m *InMemoryRecorder) IncLoginFailure() {
	atomic.AddUint64(&m.loginFailures, 1)
}

// IncUpload increments the upload counter.
func (m *InMemoryRecorder) IncUpload() {
	atomic.AddUint64(&m.uploads, 1)
}

// IncUploadCompensated increments the compensated upload counter.
func (m *InMemoryRecorder) IncUploadCompensated() {
	atomic.AddUint64(&m.uploadsCompensated, 1)
}

// IncFolderCreated increments the folder creation counter.
func (m *InMemoryRecorder) IncFolderCreated() {
	atomic.AddUint64(&m.foldersCreated, 1)
}

// IncItemDeleted increments the item deletion counter.
func (m *InMemoryRecorder) IncItemDeleted() {
	atomic.AddUint64(&m.itemsDeleted, 1)
}

// IncDeleteRetryQueued increments the queued delete retry counter.
func (m *InMemoryRecorder) IncDeleteRetryQueued() {
	atomic.AddUint64(&m.deleteRetriesQueued, 1)
}

// IncURLCacheHit increments the URL cache hit counter.
func (m *InMemoryRecorder) IncURLCacheHit() {
	atomic.AddUint64(&m.urlCacheHits, 1)
}

// IncURLCacheMiss increments the URL cache miss counter.
func (m *InMemoryRecorder) IncURLCacheMiss() {
	atomic.AddUint64(&m.urlCacheMisses, 1)
}

// IncJanitorCleanup increments the janitor cleanup counter.
func (m *InMemoryRecorder) IncJanitorCleanup() {
	atomic.AddUint64(&m.janitorCleanups, 1)
}

// IncJanitorRetryFailed increments the janitor retry failure counter.
func (m *InMemoryRecorder) IncJanitorRetryFailed() {
	atomic.AddUint64(&m.janitorRetryFails, 1)
}
