// ABOUTME: Enumerates output devices across every audio host
// ABOUTME: Failed hosts and devices are yielded as errors, never dropped
// Package devices walks all audio hosts (ALSA, PulseAudio, CoreAudio, ...)
// and their output devices through a pluggable Backend.
package devices

import (
	"iter"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
)

// HostID names an audio host API such as "ALSA"
type HostID string

// Backend exposes the audio hosts of the platform
type Backend interface {
	Hosts() ([]HostID, error)
	OpenHost(id HostID) (Host, error)
}

// Host is an opened audio host. Devices it yields are valid until Close.
type Host interface {
	OutputDevices() (DeviceIterator, error)
	Close() error
}

// DeviceIterator yields devices until it returns false
type DeviceIterator interface {
	Next() (Device, bool)
}

// Device is an output device exposed by a host
type Device interface {
	Name() (string, error)
	IsDefault() bool
	SupportedConfigs() ([]protocol.SupportedDeviceConfig, error)
}

// Pair is one device resolved while its host was open
type Pair struct {
	Host    HostID
	Device  string
	Default bool
	Configs []protocol.SupportedDeviceConfig
}

// Supported converts the pair to its wire form
func (p Pair) Supported() protocol.SupportedOutputDevice {
	return protocol.SupportedOutputDevice{
		Host:          string(p.Host),
		Device:        p.Device,
		Default:       p.Default,
		StreamConfigs: p.Configs,
	}
}

// Entry is a single enumeration step: either a Pair or an error
type Entry struct {
	Pair Pair
	Err  error
}

// Enumerator is a two-level cursor: an index into the host list and the
// device iterator of the currently open host.
type Enumerator struct {
	backend Backend

	hosts  []HostID
	listed bool
	next   int

	host    Host
	hostID  HostID
	devices DeviceIterator

	done bool
}

// NewEnumerator creates an enumerator over every host of backend
func NewEnumerator(backend Backend) *Enumerator {
	return &Enumerator{backend: backend}
}

// Next returns the next device or per-host error. It returns false once
// every host has been visited; later calls keep returning false.
func (e *Enumerator) Next() (Entry, bool) {
	if e.done {
		return Entry{}, false
	}

	if !e.listed {
		e.listed = true
		hosts, err := e.backend.Hosts()
		if err != nil {
			e.done = true
			return Entry{Err: &HostError{Kind: KindBackend, Err: err}}, true
		}
		e.hosts = hosts
	}

	for {
		if e.devices != nil {
			if dev, ok := e.devices.Next(); ok {
				return e.resolve(dev), true
			}
			e.closeHost()
		}

		if e.next >= len(e.hosts) {
			e.done = true
			return Entry{}, false
		}
		id := e.hosts[e.next]
		e.next++

		host, err := e.backend.OpenHost(id)
		if err != nil {
			return Entry{Err: &HostError{Kind: KindHostUnavailable, Host: id, Err: err}}, true
		}
		devices, err := host.OutputDevices()
		if err != nil {
			host.Close()
			return Entry{Err: &HostError{Kind: KindDevices, Host: id, Err: err}}, true
		}
		if devices == nil {
			host.Close()
			continue
		}
		e.host, e.hostID, e.devices = host, id, devices
	}
}

func (e *Enumerator) resolve(dev Device) Entry {
	name, err := dev.Name()
	if err != nil {
		return Entry{Err: &HostError{Kind: KindBackend, Host: e.hostID, Err: err}}
	}
	configs, err := dev.SupportedConfigs()
	if err != nil {
		return Entry{Err: &HostError{Kind: KindStreamConfig, Host: e.hostID, Device: name, Err: err}}
	}
	return Entry{Pair: Pair{Host: e.hostID, Device: name, Default: dev.IsDefault(), Configs: configs}}
}

func (e *Enumerator) closeHost() {
	if e.host != nil {
		e.host.Close()
	}
	e.host, e.hostID, e.devices = nil, "", nil
}

// Close releases the currently open host, if any, and ends enumeration
func (e *Enumerator) Close() {
	e.closeHost()
	e.done = true
}

// All adapts the enumerator to a range-over-func sequence
func (e *Enumerator) All() iter.Seq2[Pair, error] {
	return func(yield func(Pair, error) bool) {
		defer e.Close()
		for {
			entry, ok := e.Next()
			if !ok {
				return
			}
			if !yield(entry.Pair, entry.Err) {
				return
			}
		}
	}
}

// Collect enumerates backend into a query response
func Collect(backend Backend) protocol.OutputDevicesResponse {
	resp := protocol.OutputDevicesResponse{Devices: []protocol.SupportedOutputDevice{}}
	for pair, err := range NewEnumerator(backend).All() {
		if err != nil {
			resp.Errors = append(resp.Errors, Failure(err))
			continue
		}
		resp.Devices = append(resp.Devices, pair.Supported())
	}
	return resp
}
