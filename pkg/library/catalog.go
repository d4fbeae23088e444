// ABOUTME: Loads library records from a TOML catalog file
// ABOUTME: The catalog is written by an external tagger and only read here
package library

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type catalogFile struct {
	Artists []Artist `toml:"artist"`
}

// LoadCatalog reads artist records from path
func LoadCatalog(path string) ([]Artist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog records
func ParseCatalog(data []byte) ([]Artist, error) {
	var cf catalogFile
	if err := toml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for i, artist := range cf.Artists {
		if artist.Name == "" {
			return nil, fmt.Errorf("artist %d: name is required", i)
		}
		for j, album := range artist.Albums {
			if album.Title == "" {
				return nil, fmt.Errorf("artist %q album %d: title is required", artist.Name, j)
			}
			for k, track := range album.Tracks {
				if track.Title == "" {
					return nil, fmt.Errorf("album %q track %d: title is required", album.Title, k)
				}
			}
		}
	}
	return cf.Artists, nil
}
