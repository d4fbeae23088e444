// ABOUTME: Tests for output device enumeration
// ABOUTME: Uses the scripted backend to verify per-host fault isolation
package devices_test

import (
	"errors"
	"testing"

	"github.com/Kasumin-Audio/kasumin-go/pkg/devices"
	"github.com/Kasumin-Audio/kasumin-go/pkg/devices/devicestest"
	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
)

type step struct {
	host   devices.HostID
	device string
	kind   devices.HostErrorKind
}

func drain(t *testing.T, e *devices.Enumerator) []step {
	t.Helper()
	var steps []step
	for i := 0; i < 100; i++ {
		entry, ok := e.Next()
		if !ok {
			return steps
		}
		if entry.Err != nil {
			var hostErr *devices.HostError
			if !errors.As(entry.Err, &hostErr) {
				t.Fatalf("expected HostError, got %v", entry.Err)
			}
			steps = append(steps, step{host: hostErr.Host, device: hostErr.Device, kind: hostErr.Kind})
			continue
		}
		steps = append(steps, step{host: entry.Pair.Host, device: entry.Pair.Device})
	}
	t.Fatal("enumerator did not terminate")
	return nil
}

func TestEnumeratorVisitsEveryHost(t *testing.T) {
	backend := &devicestest.Backend{HostList: []devicestest.Host{
		{ID: "A", Devices: []devicestest.Device{{DeviceName: "a1"}, {DeviceName: "a2"}}},
		{ID: "B", OpenErr: devicestest.ErrUnavailable},
		{ID: "C", Devices: []devicestest.Device{{DeviceName: "c1"}}},
	}}

	got := drain(t, devices.NewEnumerator(backend))
	want := []step{
		{host: "A", device: "a1"},
		{host: "A", device: "a2"},
		{host: "B", kind: devices.KindHostUnavailable},
		{host: "C", device: "c1"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d steps, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if backend.Open() != 0 {
		t.Errorf("expected every host closed, %d still open", backend.Open())
	}
}

func TestEnumeratorDeviceErrors(t *testing.T) {
	backend := &devicestest.Backend{HostList: []devicestest.Host{
		{ID: "A", DevicesErr: errors.New("no devices")},
		{ID: "B", Devices: []devicestest.Device{
			{DeviceName: "broken", ConfigErr: errors.New("busy")},
			{NameErr: errors.New("unnamed")},
			{DeviceName: "ok", Configs: []protocol.SupportedDeviceConfig{devicestest.StereoF32}},
		}},
	}}

	got := drain(t, devices.NewEnumerator(backend))
	want := []step{
		{host: "A", kind: devices.KindDevices},
		{host: "B", device: "broken", kind: devices.KindStreamConfig},
		{host: "B", kind: devices.KindBackend},
		{host: "B", device: "ok"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d steps, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestEnumeratorEmptyAndExhausted(t *testing.T) {
	backend := &devicestest.Backend{HostList: []devicestest.Host{{ID: "A"}, {ID: "B"}}}
	e := devices.NewEnumerator(backend)

	if _, ok := e.Next(); ok {
		t.Fatal("expected no entries from hosts without devices")
	}
	if _, ok := e.Next(); ok {
		t.Error("expected exhausted enumerator to stay exhausted")
	}
}

func TestEnumeratorListFailure(t *testing.T) {
	backend := &devicestest.Backend{ListErr: errors.New("no audio subsystem")}
	e := devices.NewEnumerator(backend)

	entry, ok := e.Next()
	if !ok || entry.Err == nil {
		t.Fatalf("expected a single error entry, got %+v", entry)
	}
	if _, ok := e.Next(); ok {
		t.Error("expected enumeration to end after list failure")
	}
}

func TestAllStopsEarly(t *testing.T) {
	backend := &devicestest.Backend{HostList: []devicestest.Host{
		{ID: "A", Devices: []devicestest.Device{{DeviceName: "a1"}, {DeviceName: "a2"}}},
	}}

	for range devices.NewEnumerator(backend).All() {
		break
	}
	if backend.Open() != 0 {
		t.Errorf("expected host closed after early stop, %d open", backend.Open())
	}
}

func TestCollect(t *testing.T) {
	backend := &devicestest.Backend{HostList: []devicestest.Host{
		{ID: "A", Devices: []devicestest.Device{{DeviceName: "default", Default: true, Configs: []protocol.SupportedDeviceConfig{devicestest.StereoF32}}}},
		{ID: "B", OpenErr: devicestest.ErrUnavailable},
	}}

	resp := devices.Collect(backend)
	if len(resp.Devices) != 1 || resp.Devices[0].Device != "default" {
		t.Fatalf("unexpected devices: %+v", resp.Devices)
	}
	if !resp.Devices[0].Default {
		t.Error("expected the default flag to reach the wire form")
	}
	if len(resp.Devices[0].StreamConfigs) != 1 {
		t.Errorf("expected 1 stream config, got %d", len(resp.Devices[0].StreamConfigs))
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Host != "B" || resp.Errors[0].Message != "host unavailable" {
		t.Errorf("unexpected errors: %+v", resp.Errors)
	}
}

func TestHostErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err  *devices.HostError
		want string
	}{
		{&devices.HostError{Host: "ALSA", Device: "hw:0", Err: cause}, "device `hw:0` via `ALSA`: boom"},
		{&devices.HostError{Host: "ALSA", Err: cause}, "unknown device via `ALSA`: boom"},
		{&devices.HostError{Err: cause}, "boom"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
		if !errors.Is(tt.err, cause) {
			t.Errorf("expected %v to wrap cause", tt.err)
		}
	}
}
