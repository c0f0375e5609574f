package build

import "errors"

var (
	ErrBuild       = errors.New("build failed")
	ErrEnvironment = errors.New("invalid environment")
	ErrInject      = errors.New("source injection failed")
)
