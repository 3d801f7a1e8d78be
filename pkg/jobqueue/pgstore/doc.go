// Package pgstore implements jobqueue.Store on PostgreSQL with pgx/v5.
//
// Envelopes live in job_envelopes. Each work type keeps its payload in its
// own table whose envelope_id references the envelope with ON DELETE
// CASCADE, so deleting an envelope always removes its payload. Payload
// columns are taken from the `db` tags of the registered payload struct.
//
// Dequeue claims rows with SELECT ... FOR UPDATE SKIP LOCKED, one priority
// tier at a time, inside a single short transaction. Concurrent workers
// never wait on each other's candidates and never claim the same envelope.
//
// Timestamps come from the database clock (now()) unless WithClock is set,
// so hosts with skewed clocks agree on lease deadlines.
//
// The store can be bound to a caller's transaction to enqueue atomically with
// a business change:
//
//	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
//		if err := saveEvent(ctx, tx, ev); err != nil {
//			return err
//		}
//		_, err := enqueuer.Bind(store.WithTx(tx)).Enqueue(ctx, payload)
//		return err
//	})
//	if err == nil {
//		enqueuer.Notify(ctx)
//	}
package pgstore
