// Package config holds the source registry: the university pages the worker harvests.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
)

// SourcesFile is the YAML shape accepted by LoadSources.
//
//	sources:
//	  - key: announcements
//	    url: https://makautwb.ac.in/page.php?id=340
//	    priority: 1
//	    name: MAKAUT WB
type SourcesFile struct {
	Sources []entity.Source `yaml:"sources"`
}

// DefaultSources returns the built-in MAKAUT registry, sorted by priority.
func DefaultSources() []entity.Source {
	return sortByPriority([]entity.Source{
		{Key: "announcements", URL: "https://makautwb.ac.in/page.php?id=340", Priority: 1, Name: "MAKAUT WB"},
		{Key: "tenders", URL: "https://makautwb.ac.in/page.php?id=210", Priority: 3, Name: "MAKAUT WB"},
		{Key: "vacancies", URL: "https://makautwb.ac.in/page.php?id=211", Priority: 3, Name: "MAKAUT WB"},
		{Key: "exam_notices", URL: "https://www.makautexam.net/announcement.html", Priority: 2, Name: "MAKAUT EXAM"},
	})
}

// LoadSources reads a registry from a YAML file.
// Every source is validated and keys must be unique. The result is
// stable-sorted by priority so equal priorities keep file order.
func LoadSources(path string) ([]entity.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s: no sources defined", path)
	}

	seen := make(map[string]bool, len(file.Sources))
	for i := range file.Sources {
		s := &file.Sources[i]
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("sources[%d]: duplicate key %q", i, s.Key)
		}
		seen[s.Key] = true
	}

	return sortByPriority(file.Sources), nil
}

// ResolveSources returns the registry from path when set, the defaults otherwise.
func ResolveSources(path string) ([]entity.Source, error) {
	if path == "" {
		return DefaultSources(), nil
	}
	return LoadSources(path)
}

func sortByPriority(sources []entity.Source) []entity.Source {
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority < sources[j].Priority
	})
	return sources
}
