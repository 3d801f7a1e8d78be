// Package workitems defines the closed set of work types processed by the
// groupware server: implicit scheduling, iMIP delivery, push notifications,
// group membership refresh and store housekeeping.
//
// Every payload is a plain struct. Its `db` tags name the columns of its
// payload table and its `json` tags are used by document stores and the
// admin API. Payloads that must not run concurrently with related work
// implement jobqueue.LockKeyer.
//
//	reg := jobqueue.NewRegistry()
//	if err := workitems.Register(reg); err != nil {
//		return err
//	}
//
//	id, err := enqueuer.Enqueue(ctx, &workitems.GroupRefresh{GroupUID: uid})
package workitems
