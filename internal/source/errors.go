package source

import "errors"

var (
	ErrLocation = errors.New("invalid source location")
	ErrNotFound = errors.New("file not found in source")
	ErrRemote   = errors.New("remote source failure")
)
