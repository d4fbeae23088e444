// ABOUTME: Error types for envelope and payload decoding
// ABOUTME: Each envelope failure carries the data needed to report it
package protocol

import (
	"fmt"
	"strconv"
)

// EnvelopeErrorKind classifies envelope failures
type EnvelopeErrorKind int

const (
	// WrongFormat means the magic prefix or terminator did not match
	WrongFormat EnvelopeErrorKind = iota + 1
	// Zero means the envelope announced an empty payload
	Zero
	// DataTooLarge means the announced length exceeds the frame limit
	DataTooLarge
	// InvalidSize means the stream closed partway through an envelope
	InvalidSize
	// Network means the underlying stream failed
	Network
)

func (k EnvelopeErrorKind) String() string {
	switch k {
	case WrongFormat:
		return "wrong format"
	case Zero:
		return "zero length"
	case DataTooLarge:
		return "data too large"
	case InvalidSize:
		return "invalid size"
	case Network:
		return "network"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// EnvelopeError reports a malformed or unreadable frame header
type EnvelopeError struct {
	Kind EnvelopeErrorKind

	Raw    []byte // WrongFormat: the header as received
	Limit  uint32 // DataTooLarge
	Length uint32 // DataTooLarge
	Got    int    // InvalidSize: bytes read before close
	Err    error  // Network
}

func (e *EnvelopeError) Error() string {
	switch e.Kind {
	case WrongFormat:
		return fmt.Sprintf("envelope: wrong format: %q", e.Raw)
	case Zero:
		return "envelope: payload length is zero"
	case DataTooLarge:
		return fmt.Sprintf("envelope: payload of %d bytes exceeds limit of %d", e.Length, e.Limit)
	case InvalidSize:
		return fmt.Sprintf("envelope: stream closed after %d of %d header bytes", e.Got, EnvelopeSize)
	case Network:
		return fmt.Sprintf("envelope: network: %v", e.Err)
	default:
		return "envelope: " + e.Kind.String()
	}
}

func (e *EnvelopeError) Unwrap() error {
	return e.Err
}

// DecodeError reports a payload that could not be turned into a message
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
