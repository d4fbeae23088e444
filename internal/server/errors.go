// ABOUTME: Connection-scoped errors tagged with the client identity
// ABOUTME: Logged at the connection boundary, never returned to the coordinator
package server

import (
	"errors"
	"fmt"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
)

var (
	// ErrServerClosed is returned by Start when called on a stopped server
	ErrServerClosed = errors.New("server closed")

	// errClientClosed marks an orderly disconnect by the client
	errClientClosed = errors.New("client closed connection")
)

// ErrorKind classifies connection failures
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindEnvelope
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindEnvelope:
		return "envelope"
	case KindDecode:
		return "decode"
	default:
		return "network"
	}
}

// ServerError is a failure on one client connection
type ServerError struct {
	ClientName string
	ClientID   string
	Kind       ErrorKind
	Err        error
}

func (e *ServerError) Error() string {
	name, id := e.ClientName, e.ClientID
	if name == "" {
		name = "N/A"
	}
	if id == "" {
		id = "N/A"
	}
	return fmt.Sprintf("%s (%s) => %s: %v", name, id, e.Kind, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

func classify(err error) ErrorKind {
	var envErr *protocol.EnvelopeError
	var decErr *protocol.DecodeError
	switch {
	case errors.As(err, &decErr):
		return KindDecode
	case errors.As(err, &envErr) && envErr.Kind != protocol.Network:
		return KindEnvelope
	default:
		return KindNetwork
	}
}
