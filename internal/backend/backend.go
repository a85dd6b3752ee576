// Package backend holds the two generation strategies: the remote
// chat-completion service and the deterministic local simulator.
package backend

import (
	"context"
	"errors"

	"github.com/parley-io/parley/pkg/protocol"
)

// ErrNotConfigured is returned by a remote backend that has no base URL.
// It is a routing signal, not a failure: the pipeline runs the local
// path instead.
var ErrNotConfigured = errors.New("backend: not configured")

// Backend is the abstraction over generation strategies.
type Backend interface {
	Generate(ctx context.Context, req protocol.GenerationRequest) (*protocol.GenerationResult, error)
	Name() string
}
