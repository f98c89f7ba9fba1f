package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sevenofnine/smartevent-bridge/internal/listview"
)

// SurfaceSpec is one entry of the surfaces file:
//
//	surfaces:
//	  - name: explore
//	    page_size: 3
//	    scope: upcoming
//	    limit: 3
type SurfaceSpec struct {
	Name            string `yaml:"name"`
	PageSize        int    `yaml:"page_size"`
	DefaultCategory string `yaml:"default_category"`
	Scope           string `yaml:"scope"`
	Limit           int    `yaml:"limit"`
}

type surfacesFile struct {
	Surfaces []SurfaceSpec `yaml:"surfaces"`
}

// Profiles returns the configured surfaces, or the built-in ones when no
// surfaces file is set.
func (c Config) Profiles() ([]listview.Profile, error) {
	if c.SurfacesFile == "" {
		return listview.DefaultProfiles(), nil
	}
	data, err := os.ReadFile(c.SurfacesFile)
	if err != nil {
		return nil, fmt.Errorf("read surfaces file: %w", err)
	}
	return ParseProfiles(data)
}

func ParseProfiles(data []byte) ([]listview.Profile, error) {
	var file surfacesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse surfaces file: %w", err)
	}
	if len(file.Surfaces) == 0 {
		return nil, errors.New("surfaces file lists no surfaces")
	}
	out := make([]listview.Profile, 0, len(file.Surfaces))
	seen := map[string]bool{}
	for i, s := range file.Surfaces {
		p, err := s.profile()
		if err != nil {
			return nil, fmt.Errorf("surface %d: %w", i, err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("surface %q defined twice", p.Name)
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out, nil
}

func (s SurfaceSpec) profile() (listview.Profile, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return listview.Profile{}, errors.New("name is required")
	}
	if s.PageSize < 1 {
		return listview.Profile{}, fmt.Errorf("%s: page_size must be >= 1", name)
	}
	p := listview.Profile{Name: name, PageSize: s.PageSize, DefaultCategory: s.DefaultCategory}
	if p.DefaultCategory == "" {
		p.DefaultCategory = listview.All
	}
	switch strings.ToLower(strings.TrimSpace(s.Scope)) {
	case "", "all":
		if s.Limit != 0 {
			return listview.Profile{}, fmt.Errorf("%s: limit needs scope upcoming", name)
		}
	case "upcoming":
		if s.Limit < 0 {
			return listview.Profile{}, fmt.Errorf("%s: limit must be >= 0", name)
		}
		p.Scope = listview.Upcoming(s.Limit)
	default:
		return listview.Profile{}, fmt.Errorf("%s: unknown scope %q", name, s.Scope)
	}
	return p, nil
}
