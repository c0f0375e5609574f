package buildfile

import "errors"

var (
	ErrConfigNotFound = errors.New("no build file found")
	ErrMalformed      = errors.New("malformed build file")
)
