package datastore

import "errors"

var (
	ErrNotFound    = errors.New("datastore: not found")
	ErrEndOfStream = errors.New("datastore: end of stream")
	ErrCorrupt     = errors.New("datastore: corrupt entry")
	ErrWrongKind   = errors.New("datastore: wrong kind for key")
	ErrCodec       = errors.New("datastore: codec differs from the recorded one")
	ErrInvalidKey  = errors.New("datastore: invalid key")
	ErrInvalidName = errors.New("datastore: invalid store name")
	ErrClosed      = errors.New("datastore: registry closed")
)
