// ABOUTME: Kasumin message schema shared by client and server
// ABOUTME: Variant structs carry exactly one non-nil field
package protocol

import (
	"errors"
	"fmt"
)

// KasuminRequest is sent by clients. UUID is empty until the server assigns one.
type KasuminRequest struct {
	UUID    string      `msgpack:"uuid"`
	Version uint16      `msgpack:"version"`
	Message RequestKind `msgpack:"message"`
}

// RequestKind selects the request variant
type RequestKind struct {
	Connect  *ConnectRequest  `msgpack:"connect,omitempty"`
	Query    *QueryRequest    `msgpack:"query,omitempty"`
	Playlist *PlaylistRequest `msgpack:"playlist,omitempty"`
}

// ConnectRequest opens a session. Names are not unique.
type ConnectRequest struct {
	Name string `msgpack:"name"`
}

// QueryTarget names what a query asks for
type QueryTarget string

const (
	QueryOutputDevices QueryTarget = "output_devices"
	QueryPlaylist      QueryTarget = "playlist"
	QueryLibrary       QueryTarget = "library"
)

// QueryRequest asks the server to publish part of its state. Term
// narrows library queries to names and titles starting with it, or
// equal to it when Exact is set.
type QueryRequest struct {
	Target QueryTarget `msgpack:"target"`
	Term   string      `msgpack:"term,omitempty"`
	Exact  bool        `msgpack:"exact,omitempty"`
}

// PlaylistRequest mutates the play queue
type PlaylistRequest struct {
	Enqueue *EnqueueRequest `msgpack:"enqueue,omitempty"`
	Advance *AdvanceRequest `msgpack:"advance,omitempty"`
}

// EnqueueRequest inserts a track at a queue position
type EnqueueRequest struct {
	Position uint32   `msgpack:"position"`
	Track    TrackRef `msgpack:"track"`
}

// AdvanceRequest moves now-playing to the next queue entry
type AdvanceRequest struct{}

// TrackRef identifies a track without carrying audio
type TrackRef struct {
	Title  string `msgpack:"title"`
	Artist string `msgpack:"artist,omitempty"`
	Album  string `msgpack:"album,omitempty"`
	Link   string `msgpack:"link,omitempty"`
}

// KasuminResponse is a state snapshot broadcast to every client
type KasuminResponse struct {
	Message ResponseKind `msgpack:"message"`
}

// ResponseKind selects the response variant
type ResponseKind struct {
	Ready   *ReadyResponse   `msgpack:"ready,omitempty"`
	Connect *ConnectResponse `msgpack:"connect,omitempty"`
	Query   *QueryResponse   `msgpack:"query,omitempty"`
}

// ReadyResponse is the initial broadcast value
type ReadyResponse struct{}

// ConnectResponse carries the server-assigned session id
type ConnectResponse struct {
	UUID string `msgpack:"uuid"`
}

// QueryResponse carries the answer to one query target
type QueryResponse struct {
	OutputDevices *OutputDevicesResponse `msgpack:"output_devices,omitempty"`
	Playlist      *PlaylistResponse      `msgpack:"playlist,omitempty"`
	Library       *LibraryResponse       `msgpack:"library,omitempty"`
}

// OutputDevicesResponse lists every enumerable output device. Hosts or
// devices that failed are reported in Errors rather than dropped.
type OutputDevicesResponse struct {
	Devices []SupportedOutputDevice `msgpack:"devices"`
	Errors  []DeviceFailure         `msgpack:"errors,omitempty"`
}

// SupportedOutputDevice is one device and the stream configs it accepts
type SupportedOutputDevice struct {
	Host          string                  `msgpack:"host"`
	Device        string                  `msgpack:"device"`
	Default       bool                    `msgpack:"default,omitempty"`
	StreamConfigs []SupportedDeviceConfig `msgpack:"stream_configs"`
}

// SupportedDeviceConfig is a range of stream parameters a device accepts
type SupportedDeviceConfig struct {
	Channels      uint16       `msgpack:"channels"`
	MinSampleRate uint32       `msgpack:"min_sample_rate"`
	MaxSampleRate uint32       `msgpack:"max_sample_rate"`
	BufferSize    *BufferSize  `msgpack:"buffer_size,omitempty"`
	SampleFormat  SampleFormat `msgpack:"sample_format"`
}

// BufferSize is a frame count range. Nil means the backend did not say.
type BufferSize struct {
	Min uint32 `msgpack:"min"`
	Max uint32 `msgpack:"max"`
}

// SampleFormat is the sample encoding of a stream
type SampleFormat string

const (
	SampleI8  SampleFormat = "i8"
	SampleI16 SampleFormat = "i16"
	SampleI32 SampleFormat = "i32"
	SampleI64 SampleFormat = "i64"
	SampleU8  SampleFormat = "u8"
	SampleU16 SampleFormat = "u16"
	SampleU32 SampleFormat = "u32"
	SampleU64 SampleFormat = "u64"
	SampleF32 SampleFormat = "f32"
	SampleF64 SampleFormat = "f64"
)

// DeviceFailure reports a host or device that could not be enumerated
type DeviceFailure struct {
	Host    string `msgpack:"host"`
	Device  string `msgpack:"device,omitempty"`
	Message string `msgpack:"message"`
}

// PlaylistResponse is the ordered queue. Current is nil when nothing is playing.
type PlaylistResponse struct {
	Entries []PlaylistEntry `msgpack:"entries"`
	Current *uint32         `msgpack:"current,omitempty"`
}

// PlaylistEntry is one queued track
type PlaylistEntry struct {
	Position uint32   `msgpack:"position"`
	Track    TrackRef `msgpack:"track"`
}

// LibraryResponse is the artist tree of the music library
type LibraryResponse struct {
	Artists []LibraryArtist `msgpack:"artists"`
}

// LibraryArtist groups albums under an artist name
type LibraryArtist struct {
	Name   string         `msgpack:"name"`
	Albums []LibraryAlbum `msgpack:"albums"`
}

// LibraryAlbum groups tracks under an album title
type LibraryAlbum struct {
	Title  string     `msgpack:"title"`
	Date   string     `msgpack:"date,omitempty"`
	Tracks []TrackRef `msgpack:"tracks"`
}

var errNoVariant = errors.New("no variant set")

// Validate checks that exactly one variant is set at every level
func (r KasuminRequest) Validate() error {
	m := r.Message
	set := 0
	if m.Connect != nil {
		set++
	}
	if m.Query != nil {
		set++
		switch m.Query.Target {
		case QueryOutputDevices, QueryPlaylist, QueryLibrary:
		default:
			return fmt.Errorf("unknown query target %q", m.Query.Target)
		}
	}
	if m.Playlist != nil {
		set++
		p := m.Playlist
		switch {
		case p.Enqueue != nil && p.Advance != nil:
			return errors.New("playlist request sets more than one variant")
		case p.Enqueue == nil && p.Advance == nil:
			return fmt.Errorf("playlist request: %w", errNoVariant)
		}
	}
	switch set {
	case 0:
		return fmt.Errorf("request: %w", errNoVariant)
	case 1:
		return nil
	default:
		return errors.New("request sets more than one variant")
	}
}

// Validate checks that exactly one response variant is set
func (r KasuminResponse) Validate() error {
	set := 0
	for _, ok := range []bool{r.Message.Ready != nil, r.Message.Connect != nil, r.Message.Query != nil} {
		if ok {
			set++
		}
	}
	switch set {
	case 0:
		return fmt.Errorf("response: %w", errNoVariant)
	case 1:
		return nil
	default:
		return errors.New("response sets more than one variant")
	}
}

// Ready is the response every server starts broadcasting
func Ready() KasuminResponse {
	return KasuminResponse{Message: ResponseKind{Ready: &ReadyResponse{}}}
}
