package main

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/theory-exam/internal/media"
)

func main() {
	var (
		dir = flag.String("dir", "assets/images", "Directory containing bundled media files")
		out = flag.String("out", "assets/media-manifest.json", "Manifest output path")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("failed to read media directory")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	log.Info().Int("entries", len(names)).Str("dir", *dir).Msg("scanned media directory")

	manifest := media.NewManifest(names, time.Now())
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode manifest")
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatal().Err(err).Str("out", *out).Msg("failed to create output directory")
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		log.Fatal().Err(err).Str("out", *out).Msg("failed to write manifest")
	}

	log.Info().Int("files", manifest.Len()).Str("out", *out).Msg("media manifest written")
}
