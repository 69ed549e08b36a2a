package mfind

// WithBeforeClaim installs a hook that runs after a worker acquires a unit
// and before it claims a task.
func WithBeforeClaim(fn func()) Option {
	return func(o *options) {
		o.beforeClaim = fn
	}
}

// Exported internals for tests in package mfind_test.
var (
	TailComponent   = tailComponent
	JoinPath        = joinPath
	WithTrailingSep = withTrailingSep
	DisplayPath     = displayPath
)
