package cli

// RunOptions configures the run command.
type RunOptions struct {
	Dir       string
	FlowFile  string
	SessionID string
	// Fresh deletes the session before running.
	Fresh bool
	JSON  bool
	Debug bool
	// Verbose prints tool and control messages in text mode.
	Verbose bool
	// Context is a JSON object merged into the initial metadata.
	Context string
	// Yes approves every tool call without asking.
	Yes       bool
	FileTools bool
	NoBanner  bool
	Backend   BackendOptions
	Model     ModelOptions
}

// BackendOptions selects where sessions live.
type BackendOptions struct {
	Dir string
	// RedisURL, when set, replaces the file store with Redis and enables
	// the distributed session lock.
	RedisURL string
	// Memory keeps sessions in process only. RedisURL takes precedence.
	Memory bool
	// EncryptionKey is a base64 AES-256 key. Sessions are stored encrypted
	// when it is set.
	EncryptionKey string
	// Redact masks metadata whose key matches one of these patterns before
	// a session is stored.
	Redact []string
}

// ModelOptions selects the model of the run.
type ModelOptions struct {
	// Name is "echo" or "none".
	Name string
	// CacheSize enables an in-process response cache of that many entries.
	// With Redis the shared cache is used instead.
	CacheSize int
}
