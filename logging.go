package maviola

import "github.com/pion/logging"

// loggerFactory returns f if non-nil, otherwise the factory returned by
// logging.NewDefaultLoggerFactory. pion/logging is already present in this
// domain's dependency graph (it arrives transitively through
// pion/transport in every real gomavlib v3 consumer's go.mod in the
// example pack), so every long-running component here takes a named
// logging.LeveledLogger instead of calling the log package directly.
func loggerFactory(f logging.LoggerFactory) logging.LoggerFactory {
	if f != nil {
		return f
	}
	return logging.NewDefaultLoggerFactory()
}
