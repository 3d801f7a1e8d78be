// Package logger builds slog loggers for the job queue daemons.
//
// New creates a *slog.Logger configured by Option functions: output format
// (text or json), minimum level, static attributes and ContextExtractor
// callbacks. The handler is wrapped in LogHandlerDecorator, which runs the
// extractors on every record so values carried by the context, such as the
// envelope a handler is working on, appear in every line written with that
// context.
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "jobqueued"),
//	    logger.WithContextExtractors(jobqueue.ContextExtractors()...),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers in attr.go (EnvelopeID, WorkType, WorkerID, LockName,
// Error and friends) keep key names consistent across packages. Error and
// Errors return an empty attribute for nil errors, so they can be passed
// without a nil check.
package logger
