// ABOUTME: Tests for the library index and catalog loader
// ABOUTME: Covers reverse title lookups, filtering and catalog validation
package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
	"github.com/google/go-cmp/cmp"
)

const sampleCatalog = `
[[artist]]
name = "Perfume"

  [[artist.album]]
  title = "GAME"
  date = "2008-04-16"

    [[artist.album.track]]
    title = "Polyrhythm"
    link = "file:///music/perfume/game/01.flac"

    [[artist.album.track]]
    title = "Baby cruising Love"
    link = "file:///music/perfume/game/02.flac"

[[artist]]
name = "capsule"

  [[artist.album]]
  title = "GAME"
  date = "2003-01-01"

    [[artist.album.track]]
    title = "Polyrhythm"
    link = "file:///music/capsule/game/01.flac"
`

func sampleLibrary(t *testing.T) *Library {
	t.Helper()
	artists, err := ParseCatalog([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("failed to parse catalog: %v", err)
	}
	return New(artists)
}

func TestReverseIndices(t *testing.T) {
	lib := sampleLibrary(t)

	albums := lib.AlbumsByTitle("GAME")
	if len(albums) != 2 {
		t.Fatalf("expected 2 albums titled GAME, got %d", len(albums))
	}
	if albums[0].Artist != "Perfume" || albums[1].Artist != "capsule" {
		t.Errorf("unexpected album order: %s, %s", albums[0].Artist, albums[1].Artist)
	}

	tracks := lib.TracksByTitle("Polyrhythm")
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks titled Polyrhythm, got %d", len(tracks))
	}
	ref := tracks[1].Ref()
	if ref.Artist != "capsule" || ref.Album != "GAME" || ref.Link != "file:///music/capsule/game/01.flac" {
		t.Errorf("unexpected track ref: %+v", ref)
	}

	if got := lib.TracksByTitle("missing"); len(got) != 0 {
		t.Errorf("expected no tracks, got %d", len(got))
	}

	artists, albumTitles, trackTitles := lib.Counts()
	if artists != 2 || albumTitles != 1 || trackTitles != 2 {
		t.Errorf("unexpected counts: %d %d %d", artists, albumTitles, trackTitles)
	}
}

func TestDuplicateArtistsMerge(t *testing.T) {
	lib := New([]Artist{
		{Name: "A", Albums: []Album{{Title: "one"}}},
		{Name: "A", Albums: []Album{{Title: "two"}}},
	})

	a, ok := lib.Artist("A")
	if !ok {
		t.Fatal("expected artist A")
	}
	if len(a.Albums) != 2 {
		t.Errorf("expected merged albums, got %d", len(a.Albums))
	}
	if names := lib.Artists(); len(names) != 1 {
		t.Errorf("expected one artist name, got %v", names)
	}
}

func TestView(t *testing.T) {
	lib := sampleLibrary(t)

	tests := []struct {
		term    string
		artists int
		tracks  int
	}{
		{"", 2, 3},
		{"perf", 1, 2},
		{"game", 2, 3},
		{"baby", 1, 1},
		{"zzz", 0, 0},
	}

	for _, tt := range tests {
		view := lib.View(tt.term)
		tracks := 0
		for _, a := range view {
			for _, album := range a.Albums {
				tracks += len(album.Tracks)
			}
		}
		if len(view) != tt.artists || tracks != tt.tracks {
			t.Errorf("term %q: expected %d artists and %d tracks, got %d and %d",
				tt.term, tt.artists, tt.tracks, len(view), tracks)
		}
	}
}

func TestLookupIsExact(t *testing.T) {
	lib := sampleLibrary(t)

	tests := []struct {
		term    string
		artists []string
		tracks  int
	}{
		{"Polyrhythm", []string{"Perfume", "capsule"}, 2},
		{"GAME", []string{"Perfume", "capsule"}, 3},
		{"Perfume", []string{"Perfume"}, 2},
		{"Baby cruising Love", []string{"Perfume"}, 1},
		{"polyrhythm", nil, 0},
		{"Poly", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			view := lib.Lookup(tt.term)
			var names []string
			tracks := 0
			for _, a := range view {
				names = append(names, a.Name)
				for _, album := range a.Albums {
					tracks += len(album.Tracks)
				}
			}
			if diff := cmp.Diff(tt.artists, names); diff != "" {
				t.Errorf("artists mismatch (-want +got):\n%s", diff)
			}
			if tracks != tt.tracks {
				t.Errorf("expected %d tracks, got %d", tt.tracks, tracks)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	lib := sampleLibrary(t)

	tests := []struct {
		name   string
		ref    protocol.TrackRef
		want   protocol.TrackRef
		wantOK bool
	}{
		{
			name:   "unique title",
			ref:    protocol.TrackRef{Title: "Baby cruising Love"},
			want:   protocol.TrackRef{Title: "Baby cruising Love", Artist: "Perfume", Album: "GAME", Link: "file:///music/perfume/game/02.flac"},
			wantOK: true,
		},
		{
			name: "ambiguous title",
			ref:  protocol.TrackRef{Title: "Polyrhythm"},
			want: protocol.TrackRef{Title: "Polyrhythm"},
		},
		{
			name:   "artist narrows",
			ref:    protocol.TrackRef{Title: "Polyrhythm", Artist: "capsule"},
			want:   protocol.TrackRef{Title: "Polyrhythm", Artist: "capsule", Album: "GAME", Link: "file:///music/capsule/game/01.flac"},
			wantOK: true,
		},
		{
			name: "unknown title",
			ref:  protocol.TrackRef{Title: "missing"},
			want: protocol.TrackRef{Title: "missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lib.Resolve(tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ref mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCatalogRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid toml", "[[artist]\nname ="},
		{"missing artist name", "[[artist]]\n"},
		{"missing album title", "[[artist]]\nname = \"a\"\n[[artist.album]]\ndate = \"2000\"\n"},
		{"missing track title", "[[artist]]\nname = \"a\"\n[[artist.album]]\ntitle = \"b\"\n[[artist.album.track]]\nlink = \"x\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	artists, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	if len(artists) != 2 || len(artists[0].Albums[0].Tracks) != 2 {
		t.Errorf("unexpected catalog contents: %+v", artists)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing catalog")
	}
}
