// Package admin exposes the operator HTTP API of the work queue.
//
// The API is a chi router over any store that implements the envelope,
// lock and cluster repositories (MemoryStore or pgstore.Store):
//
//	GET    /healthz                        liveness or readiness
//	GET    /envelopes                      list; filters: work_type, state, paused, min_failures, limit, offset
//	GET    /envelopes/{id}                 envelope with payload
//	DELETE /envelopes/{id}                 cancel (idempotent)
//	POST   /envelopes/{id}/pause           suspend eligibility
//	POST   /envelopes/{id}/resume          restore eligibility
//	POST   /envelopes/{id}/retry           count a failure and reschedule; ?delay=30s
//	GET    /work-types                     per-type histogram
//	GET    /work-types/{workType}/queued   count of unleased envelopes
//	POST   /work-types/{workType}/pause    pause every envelope of the type
//	POST   /work-types/{workType}/resume   resume every envelope of the type
//	DELETE /work-types/{workType}          delete every envelope of the type
//	GET    /workers                        registered worker processes
//	GET    /locks                          held named locks
//	GET    /failures                       archived terminal failures, when configured
//
// Envelope views carry failure_count and not_before_age (seconds since
// not_before; negative while the envelope is still deferred), so stuck or
// repeatedly failing work is visible without reading logs.
package admin
