package adi

import "log/slog"

type Option func(*injectorConfig)

type injectorConfig struct {
	name      string
	parent    *Injector
	logger    *slog.Logger
	labels    []any
	validate  bool
	onResolve []ResolveHook
	onProvide []ProvideHook
}

func newConfig(opts []Option) *injectorConfig {
	cfg := &injectorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithName(name string) Option {
	return func(cfg *injectorConfig) {
		cfg.name = name
	}
}

// WithParent makes the new injector fall back to parent for tokens it
// cannot serve.
func WithParent(parent *Injector) Option {
	return func(cfg *injectorConfig) {
		cfg.parent = parent
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *injectorConfig) {
		cfg.logger = logger
	}
}

// WithLabels adds labels matched against ProvidedIn.
func WithLabels(labels ...any) Option {
	return func(cfg *injectorConfig) {
		cfg.labels = append(cfg.labels, labels...)
	}
}

// WithValidation makes Compile run Validate.
func WithValidation() Option {
	return func(cfg *injectorConfig) {
		cfg.validate = true
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *injectorConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithProvideObserver(hook ProvideHook) Option {
	return func(cfg *injectorConfig) {
		cfg.onProvide = append(cfg.onProvide, hook)
	}
}
