package model

// FileEvent represents a file system event
type FileEvent struct {
	Path      string
	Operation string
}
