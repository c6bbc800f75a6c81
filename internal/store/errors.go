package store

import "errors"

// ErrMissingWONumber rejects writes with no work order number before anything
// touches the cache or the network.
var ErrMissingWONumber = errors.New("work order number is required")
