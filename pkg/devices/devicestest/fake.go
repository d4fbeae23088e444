// ABOUTME: In-memory device backend for tests
// ABOUTME: Hosts and devices can be scripted to fail at any enumeration step
package devicestest

import (
	"errors"
	"sync/atomic"

	"github.com/Kasumin-Audio/kasumin-go/pkg/devices"
	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
)

// StereoF32 is a typical device config
var StereoF32 = protocol.SupportedDeviceConfig{
	Channels:      2,
	MinSampleRate: 44100,
	MaxSampleRate: 48000,
	SampleFormat:  protocol.SampleF32,
}

// ErrUnavailable is a convenient scripted failure
var ErrUnavailable = errors.New("host unavailable")

// Backend is a scripted devices.Backend
type Backend struct {
	HostList []Host
	ListErr  error

	opened atomic.Int32
	closed atomic.Int32
}

// Host scripts one audio host
type Host struct {
	ID         devices.HostID
	OpenErr    error
	DevicesErr error
	Devices    []Device
}

// Device scripts one output device
type Device struct {
	DeviceName string
	NameErr    error
	Default    bool
	Configs    []protocol.SupportedDeviceConfig
	ConfigErr  error
}

// Hosts implements devices.Backend
func (b *Backend) Hosts() ([]devices.HostID, error) {
	if b.ListErr != nil {
		return nil, b.ListErr
	}
	ids := make([]devices.HostID, len(b.HostList))
	for i, h := range b.HostList {
		ids[i] = h.ID
	}
	return ids, nil
}

// OpenHost implements devices.Backend
func (b *Backend) OpenHost(id devices.HostID) (devices.Host, error) {
	for _, h := range b.HostList {
		if h.ID != id {
			continue
		}
		if h.OpenErr != nil {
			return nil, h.OpenErr
		}
		b.opened.Add(1)
		return &openHost{spec: h, backend: b}, nil
	}
	return nil, ErrUnavailable
}

// Open reports how many hosts are currently open
func (b *Backend) Open() int {
	return int(b.opened.Load() - b.closed.Load())
}

type openHost struct {
	spec    Host
	backend *Backend
}

func (h *openHost) OutputDevices() (devices.DeviceIterator, error) {
	if h.spec.DevicesErr != nil {
		return nil, h.spec.DevicesErr
	}
	return &deviceIter{devices: h.spec.Devices}, nil
}

func (h *openHost) Close() error {
	h.backend.closed.Add(1)
	return nil
}

type deviceIter struct {
	devices []Device
	next    int
}

func (it *deviceIter) Next() (devices.Device, bool) {
	if it.next >= len(it.devices) {
		return nil, false
	}
	d := it.devices[it.next]
	it.next++
	return d, true
}

// Name implements devices.Device
func (d Device) Name() (string, error) {
	if d.NameErr != nil {
		return "", d.NameErr
	}
	return d.DeviceName, nil
}

// IsDefault implements devices.Device
func (d Device) IsDefault() bool {
	return d.Default
}

// SupportedConfigs implements devices.Device
func (d Device) SupportedConfigs() ([]protocol.SupportedDeviceConfig, error) {
	if d.ConfigErr != nil {
		return nil, d.ConfigErr
	}
	return d.Configs, nil
}
