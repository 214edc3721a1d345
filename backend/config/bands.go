package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

// BandsFile is the YAML layout of a band progression:
//
//	excluded: ["ALL STUDENTS", "NEW STUDENTS"]
//	bands:
//	  - name: Young WS
//	    pattern: "young ws|young w/i"
//	    min_age: 6
//	    max_age: 8
type BandsFile struct {
	Excluded []string    `yaml:"excluded"`
	Bands    []BandEntry `yaml:"bands"`
}

// BandEntry is one band in a BandsFile.
type BandEntry struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	MinAge  int    `yaml:"min_age"`
	MaxAge  int    `yaml:"max_age"`
}

// LoadProgression reads a band file. An empty path yields the default
// progression.
func LoadProgression(path string) (models.Progression, error) {
	if path == "" {
		return models.DefaultProgression(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Progression{}, fmt.Errorf("read bands file: %w", err)
	}
	return ParseProgression(data)
}

// ParseProgression decodes and validates a YAML band file.
func ParseProgression(data []byte) (models.Progression, error) {
	var f BandsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return models.Progression{}, fmt.Errorf("decode bands file: %w", err)
	}
	return f.Progression()
}

// Progression compiles the file into a validated models.Progression.
func (f BandsFile) Progression() (models.Progression, error) {
	if len(f.Bands) == 0 {
		return models.Progression{}, errors.New("bands file lists no bands")
	}
	p := models.Progression{Excluded: f.Excluded}
	for i, b := range f.Bands {
		if b.Pattern == "" {
			return models.Progression{}, fmt.Errorf("band %d (%s): pattern is required", i+1, b.Name)
		}
		if b.MinAge > b.MaxAge {
			return models.Progression{}, fmt.Errorf("band %d (%s): min_age %d exceeds max_age %d", i+1, b.Name, b.MinAge, b.MaxAge)
		}
		if i > 0 && b.MaxAge <= f.Bands[i-1].MaxAge {
			return models.Progression{}, fmt.Errorf("band %d (%s): bands must be ordered youngest first", i+1, b.Name)
		}
		m, err := models.NewMatcher(b.Pattern)
		if err != nil {
			return models.Progression{}, fmt.Errorf("band %d (%s): %w", i+1, b.Name, err)
		}
		name := b.Name
		if name == "" {
			name = b.Pattern
		}
		p.Bands = append(p.Bands, models.AgeBand{Name: name, Pattern: m, MinAge: b.MinAge, MaxAge: b.MaxAge})
	}
	return p, nil
}
