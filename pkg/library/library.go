// ABOUTME: In-memory music library index
// ABOUTME: Artists own albums and tracks; titles are indexed in reverse
// Package library indexes the music collection by artist, album title
// and track title. Titles are not unique, so reverse lookups return lists.
package library

import (
	"slices"
	"strings"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
)

// Track is a playable item
type Track struct {
	Title string `toml:"title"`
	Link  string `toml:"link"`
}

// Album is an ordered list of tracks
type Album struct {
	Title  string  `toml:"title"`
	Date   string  `toml:"date"`
	Tracks []Track `toml:"track"`
}

// Artist owns albums. Artists sharing a name are merged.
type Artist struct {
	Name   string  `toml:"name"`
	Albums []Album `toml:"album"`
}

// AlbumEntry is an album found through the title index
type AlbumEntry struct {
	Artist string
	Album  Album
}

// TrackEntry is a track found through the title index
type TrackEntry struct {
	Artist string
	Album  string
	Track  Track
}

// Ref converts the entry to a wire track reference
func (e TrackEntry) Ref() protocol.TrackRef {
	return protocol.TrackRef{Title: e.Track.Title, Artist: e.Artist, Album: e.Album, Link: e.Track.Link}
}

// Library is immutable once built
type Library struct {
	artists map[string]*Artist
	names   []string
	albums  map[string][]AlbumEntry
	tracks  map[string][]TrackEntry
}

// New builds the library and its reverse indices
func New(artists []Artist) *Library {
	l := &Library{
		artists: make(map[string]*Artist, len(artists)),
		albums:  make(map[string][]AlbumEntry),
		tracks:  make(map[string][]TrackEntry),
	}

	for _, a := range artists {
		if existing, ok := l.artists[a.Name]; ok {
			existing.Albums = append(existing.Albums, a.Albums...)
			continue
		}
		a.Albums = slices.Clone(a.Albums)
		l.artists[a.Name] = &a
		l.names = append(l.names, a.Name)
	}
	slices.Sort(l.names)

	for _, name := range l.names {
		for _, album := range l.artists[name].Albums {
			l.albums[album.Title] = append(l.albums[album.Title], AlbumEntry{Artist: name, Album: album})
			for _, track := range album.Tracks {
				l.tracks[track.Title] = append(l.tracks[track.Title], TrackEntry{Artist: name, Album: album.Title, Track: track})
			}
		}
	}
	return l
}

// Artist looks up an artist by exact name
func (l *Library) Artist(name string) (Artist, bool) {
	a, ok := l.artists[name]
	if !ok {
		return Artist{}, false
	}
	return *a, true
}

// Artists returns artist names in sorted order
func (l *Library) Artists() []string {
	return slices.Clone(l.names)
}

// AlbumsByTitle returns every album with the given title
func (l *Library) AlbumsByTitle(title string) []AlbumEntry {
	return slices.Clone(l.albums[title])
}

// TracksByTitle returns every track with the given title
func (l *Library) TracksByTitle(title string) []TrackEntry {
	return slices.Clone(l.tracks[title])
}

// Counts returns the number of artists, distinct album titles and distinct track titles
func (l *Library) Counts() (artists, albums, tracks int) {
	return len(l.artists), len(l.albums), len(l.tracks)
}

// View returns the artist tree. A non-empty term keeps artists, albums
// and tracks whose name starts with it, ignoring case.
func (l *Library) View(term string) []protocol.LibraryArtist {
	term = strings.ToLower(term)
	return l.tree(l.names,
		func(artist string) bool { return matches(artist, term) },
		func(_, album string) bool { return matches(album, term) },
		func(_, _, track string) bool { return matches(track, term) },
	)
}

// Lookup returns the artist, albums and tracks named exactly term,
// found through the indices instead of a scan.
func (l *Library) Lookup(term string) []protocol.LibraryArtist {
	_, artistHit := l.Artist(term)
	albums := make(map[[2]string]bool)
	tracks := make(map[[3]string]bool)

	var names []string
	if artistHit {
		names = append(names, term)
	}
	for _, e := range l.AlbumsByTitle(term) {
		names = append(names, e.Artist)
		albums[[2]string{e.Artist, e.Album.Title}] = true
	}
	for _, e := range l.TracksByTitle(term) {
		names = append(names, e.Artist)
		tracks[[3]string{e.Artist, e.Album, e.Track.Title}] = true
	}
	slices.Sort(names)
	names = slices.Compact(names)

	return l.tree(names,
		func(artist string) bool { return artistHit && artist == term },
		func(artist, album string) bool { return albums[[2]string{artist, album}] },
		func(artist, album, track string) bool { return tracks[[3]string{artist, album, track}] },
	)
}

// Resolve completes a reference from the track index. Artist and album,
// when set, narrow the match. It reports false when the title is unknown
// or still ambiguous.
func (l *Library) Resolve(ref protocol.TrackRef) (protocol.TrackRef, bool) {
	var found []TrackEntry
	for _, e := range l.TracksByTitle(ref.Title) {
		if (ref.Artist == "" || e.Artist == ref.Artist) && (ref.Album == "" || e.Album == ref.Album) {
			found = append(found, e)
		}
	}
	if len(found) != 1 {
		return ref, false
	}
	return found[0].Ref(), true
}

// tree walks the named artists in order. An artist or album that matches
// keeps everything beneath it; otherwise only matching children are kept.
func (l *Library) tree(names []string, artistOK func(string) bool, albumOK func(string, string) bool, trackOK func(string, string, string) bool) []protocol.LibraryArtist {
	out := []protocol.LibraryArtist{}

	for _, name := range names {
		artist, ok := l.artists[name]
		if !ok {
			continue
		}
		keepAll := artistOK(name)

		la := protocol.LibraryArtist{Name: name, Albums: []protocol.LibraryAlbum{}}
		for _, album := range artist.Albums {
			keepAlbum := keepAll || albumOK(name, album.Title)

			lb := protocol.LibraryAlbum{Title: album.Title, Date: album.Date, Tracks: []protocol.TrackRef{}}
			for _, track := range album.Tracks {
				if keepAlbum || trackOK(name, album.Title, track.Title) {
					lb.Tracks = append(lb.Tracks, protocol.TrackRef{
						Title: track.Title, Artist: name, Album: album.Title, Link: track.Link,
					})
				}
			}
			if keepAlbum || len(lb.Tracks) > 0 {
				la.Albums = append(la.Albums, lb)
			}
		}
		if keepAll || len(la.Albums) > 0 {
			out = append(out, la)
		}
	}
	return out
}

func matches(s, lowerTerm string) bool {
	return lowerTerm == "" || strings.HasPrefix(strings.ToLower(s), lowerTerm)
}
