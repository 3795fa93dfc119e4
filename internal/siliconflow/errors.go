package siliconflow

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotConfigured     = errors.New("siliconflow api key is not configured")
	ErrMalformedResponse = errors.New("siliconflow malformed response")
)

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("siliconflow API %d: %s", e.Code, e.Body)
}

type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "siliconflow request: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Kind string

const (
	KindNone      Kind = ""
	KindConfig    Kind = "config"
	KindTransport Kind = "transport"
	KindShape     Kind = "shape"
	KindOther     Kind = "other"
)

func KindOf(err error) Kind {
	var statusErr *StatusError
	var transportErr *TransportError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotConfigured):
		return KindConfig
	case errors.As(err, &statusErr), errors.As(err, &transportErr), errors.Is(err, context.DeadlineExceeded):
		return KindTransport
	case errors.Is(err, ErrMalformedResponse):
		return KindShape
	}
	return KindOther
}
