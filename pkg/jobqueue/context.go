package jobqueue

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

type jobContextKey struct{}

// WithJob stores the job being handled in ctx.
func WithJob(ctx context.Context, job *Job) context.Context {
	return context.WithValue(ctx, jobContextKey{}, job)
}

// JobFromContext returns the job a handler was invoked with.
func JobFromContext(ctx context.Context) (*Job, bool) {
	job, ok := ctx.Value(jobContextKey{}).(*Job)
	return job, ok && job != nil
}

// ContextExtractors adds the envelope id and work type of the job in ctx
// to every log record. Use with logger.WithContextExtractors.
func ContextExtractors() []logger.ContextExtractor {
	return []logger.ContextExtractor{
		func(ctx context.Context) (slog.Attr, bool) {
			if job, ok := JobFromContext(ctx); ok {
				return logger.EnvelopeID(job.ID), true
			}
			return slog.Attr{}, false
		},
		func(ctx context.Context) (slog.Attr, bool) {
			if job, ok := JobFromContext(ctx); ok {
				return logger.WorkType(string(job.WorkType)), true
			}
			return slog.Attr{}, false
		},
	}
}
