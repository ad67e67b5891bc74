package host

import "go.uber.org/zap"

type options struct {
	logger           *zap.Logger
	moduleName       string
	tableModuleName  string
	callerModuleName string
}

// Option configures module instantiation.
type Option func(*options)

// WithModuleName sets the host module name. Defaults to DefaultModuleName.
func WithModuleName(name string) Option {
	return func(o *options) { o.moduleName = name }
}

// WithTableModuleName sets the table module name.
func WithTableModuleName(name string) Option {
	return func(o *options) { o.tableModuleName = name }
}

// WithCallerModuleName sets the caller module name.
func WithCallerModuleName(name string) Option {
	return func(o *options) { o.callerModuleName = name }
}

// WithLogger overrides the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) options {
	o := options{
		moduleName:       DefaultModuleName,
		tableModuleName:  DefaultTableModuleName,
		callerModuleName: DefaultCallerModuleName,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.moduleName == "" {
		o.moduleName = DefaultModuleName
	}
	if o.tableModuleName == "" {
		o.tableModuleName = DefaultTableModuleName
	}
	if o.callerModuleName == "" {
		o.callerModuleName = DefaultCallerModuleName
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	return o
}
