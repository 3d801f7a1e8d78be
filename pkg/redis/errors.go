package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
	ErrEmptyChannel                 = errors.New("empty redis notify channel")
	ErrSubscribeFailed              = errors.New("failed to subscribe to redis notify channel")
	ErrPublishFailed                = errors.New("failed to publish wake signal")
)
