// Package redis connects to Redis and provides a Pub/Sub implementation of
// jobqueue.Notifier.
//
// A wake signal published by one process reaches every subscribed worker in
// the cluster, so newly enqueued work is picked up without waiting for the
// next poll. Signals carry no data and may be lost; workers keep polling on
// their interval regardless.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	notifier, err := redis.NewNotifier(client, cfg.NotifyChannel)
//	if err != nil {
//	    return err
//	}
//	enq, err := jobqueue.NewEnqueuer(store, registry, jobqueue.WithNotifier(notifier))
//
// Healthcheck returns a probe that plugs into the admin API:
//
//	checker := redis.Healthcheck(client)
//
// # Errors
//
// Sentinel errors (e.g. ErrRedisNotReady) wrap the underlying go-redis errors
// using errors.Join.
package redis
