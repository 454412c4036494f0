package session

import (
	"github.com/zeebo/xxh3"

	"github.com/go-zmtp/zmtp/internal"
)

// DefaultEndpointSelector uses Jump Consistent Hash to pick an
// endpoint index for key, minimizing key movement when endpointCount
// changes across process restarts with a different endpoint list. For
// a single endpoint it always returns 0.
func DefaultEndpointSelector(key string, endpointCount int) int {
	return internal.JumpHash(xxh3.HashString(key), endpointCount)
}

// staticEndpointSelector always selects the endpoint at index % n.
// Used by tests that need a deterministic endpoint.
func staticEndpointSelector(index int) EndpointSelector {
	return func(key string, endpointCount int) int {
		return index % endpointCount
	}
}
