// ABOUTME: Host and device enumeration errors
// ABOUTME: Errors name the host and, when known, the device
package devices

import (
	"errors"
	"fmt"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
)

// HostErrorKind classifies enumeration failures
type HostErrorKind int

const (
	// KindBackend is a backend-specific failure, including listing hosts
	KindBackend HostErrorKind = iota + 1
	// KindDevices means a host could not list its output devices
	KindDevices
	// KindHostUnavailable means a host could not be opened
	KindHostUnavailable
	// KindStreamConfig means a device could not report its configs
	KindStreamConfig
)

func (k HostErrorKind) String() string {
	switch k {
	case KindBackend:
		return "backend"
	case KindDevices:
		return "devices"
	case KindHostUnavailable:
		return "host unavailable"
	case KindStreamConfig:
		return "stream config"
	default:
		return "unknown"
	}
}

// HostError is a failure scoped to one host or one device
type HostError struct {
	Kind   HostErrorKind
	Host   HostID
	Device string
	Err    error
}

func (e *HostError) Error() string {
	switch {
	case e.Host != "" && e.Device != "":
		return fmt.Sprintf("device `%s` via `%s`: %v", e.Device, e.Host, e.Err)
	case e.Host != "":
		return fmt.Sprintf("unknown device via `%s`: %v", e.Host, e.Err)
	case e.Device != "":
		return fmt.Sprintf("device `%s` on an unknown host: %v", e.Device, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// Failure converts an enumeration error to its wire form
func Failure(err error) protocol.DeviceFailure {
	var hostErr *HostError
	if errors.As(err, &hostErr) {
		return protocol.DeviceFailure{
			Host:    string(hostErr.Host),
			Device:  hostErr.Device,
			Message: hostErr.Err.Error(),
		}
	}
	return protocol.DeviceFailure{Message: err.Error()}
}
