package autoreg

import (
	"go.uber.org/zap"
)

// DefaultMaxResolutionDepth bounds nested activations in a single resolve.
const DefaultMaxResolutionDepth = 100

// ContainerOption configures a Container at Build time.
type ContainerOption interface {
	applyContainerOption(*containerOptions)
}

// containerOptions holds container configuration.
type containerOptions struct {
	logger             *zap.Logger
	diagnostics        []func(ResolveEvent)
	maxResolutionDepth int
}

func defaultContainerOptions() *containerOptions {
	return &containerOptions{
		logger:             zap.NewNop(),
		maxResolutionDepth: DefaultMaxResolutionDepth,
	}
}

// containerOptionFunc adapts a function to ContainerOption.
type containerOptionFunc func(*containerOptions)

func (f containerOptionFunc) applyContainerOption(opts *containerOptions) {
	f(opts)
}

// WithLogger sets the logger. A nil logger is ignored; the default discards.
func WithLogger(logger *zap.Logger) ContainerOption {
	return containerOptionFunc(func(opts *containerOptions) {
		if logger != nil {
			opts.logger = logger
		}
	})
}

// WithDiagnostics subscribes handler to resolve events. The handler is
// called exactly once per top-level Resolve or ResolveAll, on the calling
// goroutine.
func WithDiagnostics(handler func(ResolveEvent)) ContainerOption {
	return containerOptionFunc(func(opts *containerOptions) {
		if handler != nil {
			opts.diagnostics = append(opts.diagnostics, handler)
		}
	})
}

// WithMaxResolutionDepth limits nested activations. Values below one are ignored.
func WithMaxResolutionDepth(depth int) ContainerOption {
	return containerOptionFunc(func(opts *containerOptions) {
		if depth > 0 {
			opts.maxResolutionDepth = depth
		}
	})
}
