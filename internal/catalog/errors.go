package catalog

import "errors"

var (
	ErrConfig              = errors.New("invalid defaults descriptor")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
