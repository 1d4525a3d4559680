package lxb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIO is returned when the event file cannot be read or parsed.
	ErrIO = errors.New("lxb: cannot read event stream")
	// ErrMultipleDatasets is returned for streams with more than one dataset.
	ErrMultipleDatasets = errors.New("lxb: stream has more than one dataset")
	// ErrWrongKind is returned when the dataset is not list-mode data.
	ErrWrongKind = errors.New("lxb: dataset is not list mode")
	// ErrChannelNotFound is returned when the requested channel is not a
	// parameter of the dataset.
	ErrChannelNotFound = errors.New("lxb: channel not found")
)

// ChannelError reports an unresolved channel together with the parameter
// names that were searched.
type ChannelError struct {
	Requested string
	Available []string
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("lxb: channel %q not found in [%s]", e.Requested, strings.Join(e.Available, ", "))
}

func (e *ChannelError) Unwrap() error {
	return ErrChannelNotFound
}
