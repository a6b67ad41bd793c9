package sync

// WorkspaceEntry is one non-ignored regular file under the workspace root.
type WorkspaceEntry struct {
	RelativePath string `json:"relativePath"`
	Size         int64  `json:"size"`
	Fingerprint  string `json:"fingerprint"`
}

// RemoteEntry is one object under the remote prefix.
type RemoteEntry struct {
	RelativePath string `json:"relativePath"`
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	Fingerprint  string `json:"fingerprint"`
	ContentType  string `json:"contentType,omitempty"`

	// fingerprint was taken from the listed ETag and not yet confirmed by metadata
	etagFingerprint bool
}

// Entry is the part of a listing entry the diff works on.
type Entry interface {
	Path() string
	Digest() string
}

func (e *WorkspaceEntry) Path() string   { return e.RelativePath }
func (e *WorkspaceEntry) Digest() string { return e.Fingerprint }
func (e *RemoteEntry) Path() string      { return e.RelativePath }
func (e *RemoteEntry) Digest() string    { return e.Fingerprint }
