package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// EnvelopeID records the job envelope identifier under "envelope_id".
func EnvelopeID(id int64) slog.Attr {
	return slog.Int64("envelope_id", id)
}

// WorkType records the work type tag under "work_type".
func WorkType(wt string) slog.Attr {
	return slog.String("work_type", wt)
}

// Priority records the priority tier under "priority".
func Priority(p string) slog.Attr {
	return slog.String("priority", p)
}

// LeaseOwner records the worker holding a lease under "lease_owner".
func LeaseOwner(owner string) slog.Attr {
	return slog.String("lease_owner", owner)
}

// FailureCount records how many times an envelope has failed.
func FailureCount(n int) slog.Attr {
	return slog.Int("failure_count", n)
}

// WorkerID records the worker identifier under "worker_id".
func WorkerID(id string) slog.Attr {
	return slog.String("worker_id", id)
}

// LockName records a named lock under "lock".
func LockName(name string) slog.Attr {
	return slog.String("lock", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
