package images

import "errors"

// Error kinds for per-asset failures. All of them are non-fatal: the
// caller logs, leaves the reference untouched, and moves on.
var (
	// ErrFetch marks a remote source that was unreachable or answered
	// with a non-2xx status.
	ErrFetch = errors.New("remote image fetch failed")

	// ErrNotFound marks a local source that resolved against neither the
	// document directory nor the tree root.
	ErrNotFound = errors.New("local image not found")

	// ErrDecode marks bytes that are not a loadable image.
	ErrDecode = errors.New("image decode failed")

	// ErrEncode marks a failed write in the target format.
	ErrEncode = errors.New("image encode failed")
)
