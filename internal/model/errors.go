package model

import (
	"errors"
)

var (
	ErrNoMatch      = errors.New("no match")
	ErrUnsupported  = errors.New("not supported on this platform")
	ErrUnknownProbe = errors.New("unknown probe")
)
