package recording

import "errors"

var (
	// ErrBufferEmpty means a save was requested before any batch was buffered.
	ErrBufferEmpty = errors.New("recording: buffer is empty")

	// ErrDebounced means the same PID was saved less than the debounce window ago.
	ErrDebounced = errors.New("recording: save debounced")

	// ErrInvalidFormat means the file is not a recording: short, wrong magic,
	// or an undecodable body.
	ErrInvalidFormat = errors.New("recording: invalid recording format")

	// ErrUnsupportedVersion means the magic matched but the format version did not.
	ErrUnsupportedVersion = errors.New("recording: unsupported recording version")

	// ErrInvalidID means an id that does not name a file inside the recordings dir.
	ErrInvalidID = errors.New("recording: invalid recording id")
)
