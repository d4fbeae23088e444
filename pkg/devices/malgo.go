// ABOUTME: Malgo-based device backend
// ABOUTME: Each miniaudio backend of the platform is exposed as one host
package devices

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
	"github.com/gen2brain/malgo"
)

// Sample rate bounds reported when miniaudio says a device accepts any rate
const (
	anyRateMin = 8000
	anyRateMax = 384000
)

type malgoHostSpec struct {
	id      HostID
	backend malgo.Backend
}

// MalgoBackend enumerates devices through miniaudio
type MalgoBackend struct {
	hosts []malgoHostSpec
}

// NewMalgoBackend returns a backend over the miniaudio hosts of this platform
func NewMalgoBackend() *MalgoBackend {
	return &MalgoBackend{hosts: platformHosts(runtime.GOOS)}
}

func platformHosts(goos string) []malgoHostSpec {
	switch goos {
	case "linux":
		return []malgoHostSpec{
			{"ALSA", malgo.BackendAlsa},
			{"PulseAudio", malgo.BackendPulseaudio},
			{"JACK", malgo.BackendJack},
		}
	case "darwin":
		return []malgoHostSpec{{"CoreAudio", malgo.BackendCoreaudio}}
	case "windows":
		return []malgoHostSpec{
			{"WASAPI", malgo.BackendWasapi},
			{"DirectSound", malgo.BackendDsound},
			{"WinMM", malgo.BackendWinmm},
		}
	case "freebsd", "openbsd", "netbsd":
		return []malgoHostSpec{
			{"sndio", malgo.BackendSndio},
			{"audio(4)", malgo.BackendAudio4},
			{"OSS", malgo.BackendOss},
		}
	default:
		return []malgoHostSpec{{"Null", malgo.BackendNull}}
	}
}

// Hosts lists the hosts in preference order
func (m *MalgoBackend) Hosts() ([]HostID, error) {
	ids := make([]HostID, len(m.hosts))
	for i, h := range m.hosts {
		ids[i] = h.id
	}
	return ids, nil
}

// OpenHost initializes a miniaudio context restricted to one backend
func (m *MalgoBackend) OpenHost(id HostID) (Host, error) {
	i := slices.IndexFunc(m.hosts, func(h malgoHostSpec) bool { return h.id == id })
	if i < 0 {
		return nil, fmt.Errorf("unknown host %q", id)
	}

	ctx, err := malgo.InitContext([]malgo.Backend{m.hosts[i].backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize context: %w", err)
	}
	return &malgoHost{ctx: ctx}, nil
}

type malgoHost struct {
	ctx *malgo.AllocatedContext
}

func (h *malgoHost) OutputDevices() (DeviceIterator, error) {
	infos, err := h.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, err
	}
	return &malgoDevices{ctx: h.ctx, infos: infos}, nil
}

func (h *malgoHost) Close() error {
	err := h.ctx.Uninit()
	h.ctx.Free()
	return err
}

type malgoDevices struct {
	ctx   *malgo.AllocatedContext
	infos []malgo.DeviceInfo
	next  int
}

func (d *malgoDevices) Next() (Device, bool) {
	if d.next >= len(d.infos) {
		return nil, false
	}
	dev := &malgoDevice{ctx: d.ctx, info: d.infos[d.next]}
	d.next++
	return dev, true
}

type malgoDevice struct {
	ctx  *malgo.AllocatedContext
	info malgo.DeviceInfo
}

func (d *malgoDevice) Name() (string, error) {
	name := d.info.Name()
	if name == "" {
		return "", fmt.Errorf("device reported an empty name")
	}
	return name, nil
}

func (d *malgoDevice) IsDefault() bool {
	return d.info.IsDefault != 0
}

// SupportedConfigs queries the native data formats of the device
func (d *malgoDevice) SupportedConfigs() ([]protocol.SupportedDeviceConfig, error) {
	full, err := d.ctx.DeviceInfo(malgo.Playback, d.info.ID, malgo.Shared)
	if err != nil {
		return nil, err
	}

	var configs []protocol.SupportedDeviceConfig
	for i := 0; i < int(full.FormatCount) && i < len(full.Formats); i++ {
		cfg, ok := streamConfig(full.Formats[i])
		if ok && !slices.Contains(configs, cfg) {
			configs = append(configs, cfg)
		}
	}
	return configs, nil
}

func streamConfig(f malgo.DataFormat) (protocol.SupportedDeviceConfig, bool) {
	var format protocol.SampleFormat
	switch f.Format {
	case malgo.FormatU8:
		format = protocol.SampleU8
	case malgo.FormatS16:
		format = protocol.SampleI16
	case malgo.FormatS24, malgo.FormatS32:
		// packed 24-bit is delivered widened to 32-bit
		format = protocol.SampleI32
	case malgo.FormatF32:
		format = protocol.SampleF32
	default:
		return protocol.SupportedDeviceConfig{}, false
	}

	cfg := protocol.SupportedDeviceConfig{
		Channels:      uint16(f.Channels),
		MinSampleRate: f.SampleRate,
		MaxSampleRate: f.SampleRate,
		SampleFormat:  format,
	}
	if cfg.Channels == 0 {
		cfg.Channels = 2
	}
	if f.SampleRate == 0 {
		cfg.MinSampleRate, cfg.MaxSampleRate = anyRateMin, anyRateMax
	}
	return cfg, true
}
