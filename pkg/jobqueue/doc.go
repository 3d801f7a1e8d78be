// Package jobqueue is a persistent work queue that lives inside the
// application's transactional store.
//
// A producer enqueues a Payload; the Enqueuer validates it against the
// Registry and writes an Envelope plus one payload row in a single
// transaction. Workers poll Dequeue, which claims eligible envelopes tier by
// tier (high, medium, low), ordered by weight and then id, skipping rows
// another worker is claiming at the same moment. A claim is a Lease with a
// deadline and a token unique to that claim.
//
// Handlers report one of three outcomes through the Reporter:
//
//   - Success deletes the envelope and its payload.
//   - RetryableFailure increments the failure count and moves notBefore by
//     the work type's backoff.
//   - TerminalFailure deletes the envelope and emits a FailureRecord.
//
// Outcomes carry the lease token. Reporting with a token that no longer
// matches returns ErrLeaseLost and changes nothing.
//
// A worker that crashes never reports; the Reaper reclaims its envelopes
// once their lease deadline passes, so delivery is at least once and
// handlers must be idempotent.
//
// Payloads that implement LockKeyer are serialized through NamedLocks: a
// worker takes the lock before calling the handler and, if it is held,
// gives the envelope back without counting a failure.
//
// # Usage
//
//	registry := jobqueue.NewRegistry()
//	workitems.Register(registry)
//
//	store := pgstore.New(pool, registry)
//	enqueuer, _ := jobqueue.NewEnqueuer(store, registry)
//	id, err := enqueuer.Enqueue(ctx, &workitems.PushNotification{...})
//
//	worker, _ := jobqueue.NewWorker(store, registry,
//	    jobqueue.WithMaxConcurrentJobs(10))
//	worker.RegisterHandlers(jobqueue.NewHandler(sendPush))
//	g.Go(worker.Run(ctx))
//
// MemoryStore implements the same contract in memory for tests.
package jobqueue
