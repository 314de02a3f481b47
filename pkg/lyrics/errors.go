package lyrics

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveTrack = errors.New("no active track")
	ErrInvalidToken  = errors.New("provider rejected the token")
	ErrSongNotFound  = errors.New("song not found")
	ErrRestricted    = errors.New("lyrics are restricted")
	ErrDecoding      = errors.New("unexpected response format")
	ErrTransport     = errors.New("transport failure")
	ErrUnknownSource = errors.New("unknown lyrics source")
)

// TransportError wraps a network-level failure.
type TransportError struct {
	Err error
}

// Transport wraps err as a *TransportError. A nil err yields nil.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Err: err}
}

// Transportf builds a *TransportError from a formatted message.
func Transportf(format string, args ...any) error {
	return &TransportError{Err: fmt.Errorf(format, args...)}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransport) match any transport error.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
