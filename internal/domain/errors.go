package domain

import "errors"

var (
	ErrBroadcasterNotFound = errors.New("broadcaster not found")
)
