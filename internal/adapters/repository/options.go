package repository

// settings holds options shared by the store implementations.
type settings struct {
	overflowTitle string
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithOverflowTitle tags rows created with this exact title as the overflow
// item. Used when importing lists that predate the explicit flag.
func WithOverflowTitle(title string) Option {
	return func(s *settings) {
		s.overflowTitle = title
	}
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
