package ofl

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/fixture"
)

// ManufacturersFile is the name of the manufacturers JSON file
const ManufacturersFile = "manufacturers.json"

// ImportStats counts the outcome of loading a fixture directory.
type ImportStats struct {
	Profiles   int // profile files read
	Registered int // fixture types added to the library
	Skipped    int // types whose name was already taken
	Failed     int // profiles that could not be converted
}

func (s *ImportStats) add(other ImportStats) {
	s.Profiles += other.Profiles
	s.Registered += other.Registered
	s.Skipped += other.Skipped
	s.Failed += other.Failed
}

// LoadDir registers every OFL profile under dir into lib. Profiles are either
// loose "<fixture>.json" files or zip archives laid out like the OFL
// repository (".../fixtures/<manufacturer>/<fixture>.json"). Existing types,
// including the built-in ones, are never replaced.
func LoadDir(dir string, lib *fixture.Library) (ImportStats, error) {
	var stats ImportStats

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(p)) {
		case ".json":
			if d.Name() == ManufacturersFile {
				return nil
			}
			data, err := os.ReadFile(p)
			if err != nil {
				log.Warn().Err(err).Str("file", p).Msg("⚠️  Failed to read fixture profile")
				stats.Failed++
				return nil
			}
			stats.add(register(lib, profileKey(p), data))
		case ".zip":
			zipStats, err := loadZip(p, lib)
			if err != nil {
				log.Warn().Err(err).Str("file", p).Msg("⚠️  Failed to read fixture archive")
				stats.Failed++
				return nil
			}
			stats.add(zipStats)
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to scan fixture directory %s: %w", dir, err)
	}

	log.Info().
		Int("profiles", stats.Profiles).
		Int("registered", stats.Registered).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Str("dir", dir).
		Msg("✅ OFL import complete")
	return stats, nil
}

// loadZip registers the fixture profiles inside an OFL archive.
func loadZip(p string, lib *fixture.Library) (ImportStats, error) {
	var stats ImportStats

	zipReader, err := zip.OpenReader(p)
	if err != nil {
		return stats, err
	}
	defer func() { _ = zipReader.Close() }()

	for _, f := range zipReader.File {
		// Look for files in fixtures/<manufacturer>/<fixture>.json
		parts := strings.Split(f.Name, "/")
		if len(parts) < 3 || parts[len(parts)-3] != "fixtures" {
			continue
		}
		name := parts[len(parts)-1]
		if !strings.HasSuffix(name, ".json") || name == ManufacturersFile {
			continue
		}

		data, err := readZipFile(f)
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("⚠️  Failed to read fixture profile")
			stats.Failed++
			continue
		}
		stats.add(register(lib, profileKey(f.Name), data))
	}
	return stats, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// profileKey is the fixture file name without its extension.
func profileKey(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}

// register converts one profile and adds its types to lib.
func register(lib *fixture.Library, key string, data []byte) ImportStats {
	stats := ImportStats{Profiles: 1}

	types, err := Convert(key, data)
	if err != nil {
		log.Warn().Err(err).Str("profile", key).Msg("⚠️  Failed to convert fixture profile")
		stats.Failed++
		return stats
	}

	for _, t := range types {
		if _, exists := lib.Lookup(t.Name); exists {
			log.Debug().Str("type", t.Name).Msg("Fixture type already registered, skipping")
			stats.Skipped++
			continue
		}
		if err := lib.Register(t); err != nil {
			log.Warn().Err(err).Str("type", t.Name).Msg("⚠️  Failed to register fixture type")
			stats.Failed++
			continue
		}
		stats.Registered++
	}
	return stats
}
