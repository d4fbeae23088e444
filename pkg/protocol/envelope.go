// ABOUTME: Frame envelope encoding and decoding
// ABOUTME: "kasu:" + big-endian u32 length + "\r\n" followed by a MessagePack payload
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// Magic opens every envelope
	Magic = "kasu:"
	// Terminator closes every envelope
	Terminator = "\r\n"
	// EnvelopeSize is the fixed header length
	EnvelopeSize = len(Magic) + 4 + len(Terminator)

	// DefaultFrameLimit caps payloads at 1 MiB
	DefaultFrameLimit uint32 = 1 << 20

	// ProtocolVersion is sent in every request
	ProtocolVersion uint16 = 1

	// DefaultAddress is the loopback control endpoint
	DefaultAddress = "127.0.0.1:6666"
)

// EncodeEnvelope builds the header for a payload of n bytes
func EncodeEnvelope(n uint32) [EnvelopeSize]byte {
	var hdr [EnvelopeSize]byte
	copy(hdr[:], Magic)
	binary.BigEndian.PutUint32(hdr[len(Magic):], n)
	copy(hdr[len(Magic)+4:], Terminator)
	return hdr
}

// ParseEnvelope validates a header and returns its payload length
func ParseEnvelope(hdr [EnvelopeSize]byte, limit uint32) (uint32, error) {
	if string(hdr[:len(Magic)]) != Magic || string(hdr[len(Magic)+4:]) != Terminator {
		raw := make([]byte, EnvelopeSize)
		copy(raw, hdr[:])
		return 0, &EnvelopeError{Kind: WrongFormat, Raw: raw}
	}

	n := binary.BigEndian.Uint32(hdr[len(Magic):])
	if n == 0 {
		return 0, &EnvelopeError{Kind: Zero}
	}
	if n > limit {
		return 0, &EnvelopeError{Kind: DataTooLarge, Limit: limit, Length: n}
	}
	return n, nil
}

// DecodeEnvelope reads one header from r. A stream that closes before
// any header byte arrives returns io.EOF.
func DecodeEnvelope(r io.Reader, limit uint32) (uint32, error) {
	var hdr [EnvelopeSize]byte
	got, err := io.ReadFull(r, hdr[:])
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, &EnvelopeError{Kind: InvalidSize, Got: got}
	default:
		return 0, &EnvelopeError{Kind: Network, Err: err}
	}
	return ParseEnvelope(hdr, limit)
}

// ReadFrame reads a header and exactly the payload it announces
func ReadFrame(r io.Reader, limit uint32) ([]byte, error) {
	n, err := DecodeEnvelope(r, limit)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, &EnvelopeError{Kind: Network, Err: fmt.Errorf("read %d byte payload: %w", n, err)}
	}
	return payload, nil
}

// EncodeFrame prefixes payload with its envelope
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, &EnvelopeError{Kind: Zero}
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, &EnvelopeError{Kind: DataTooLarge, Limit: math.MaxUint32, Length: math.MaxUint32}
	}

	hdr := EncodeEnvelope(uint32(len(payload)))
	frame := make([]byte, 0, EnvelopeSize+len(payload))
	frame = append(frame, hdr[:]...)
	return append(frame, payload...), nil
}

// Encode serializes a response into a complete frame
func Encode(resp KasuminResponse) ([]byte, error) {
	payload, err := msgpack.Marshal(&resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return EncodeFrame(payload)
}

// EncodeRequest serializes a request into a complete frame
func EncodeRequest(req KasuminRequest) ([]byte, error) {
	payload, err := msgpack.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return EncodeFrame(payload)
}

// DecodePayload turns a frame payload into a validated request
func DecodePayload(b []byte) (KasuminRequest, error) {
	var req KasuminRequest
	if err := msgpack.Unmarshal(b, &req); err != nil {
		return KasuminRequest{}, &DecodeError{Err: err}
	}
	if err := req.Validate(); err != nil {
		return KasuminRequest{}, &DecodeError{Err: err}
	}
	return req, nil
}

// DecodeResponse turns a frame payload into a validated response
func DecodeResponse(b []byte) (KasuminResponse, error) {
	var resp KasuminResponse
	if err := msgpack.Unmarshal(b, &resp); err != nil {
		return KasuminResponse{}, &DecodeError{Err: err}
	}
	if err := resp.Validate(); err != nil {
		return KasuminResponse{}, &DecodeError{Err: err}
	}
	return resp, nil
}
