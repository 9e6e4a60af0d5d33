package domain

import "errors"

var (
	ErrInvalidHandle = errors.New("invalid handle")
	ErrRateLimited   = errors.New("rate limited by upstream")
	ErrQueueClosed   = errors.New("request queue closed")
)
