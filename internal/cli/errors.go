package cli

import "errors"

var ErrUsage = errors.New("usage error")
