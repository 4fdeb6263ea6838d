package archiver

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/recorder"
	"github.com/rs/zerolog/log"
)

// Bundler exports recorded arrival/departure facts older than the cutoff
// into a compressed tar bundle, one JSON document per fact.
type Bundler struct {
	OutputDirectory string
	MaxAge          time.Duration
}

func (b *Bundler) Perform(ctx context.Context) error {
	currentTime := time.Now()
	cutOffTime := currentTime.Add(-b.MaxAge)

	log.Info().Msgf("Bundling arrival/departure facts older than %s", cutOffTime)

	bundleFilename := fmt.Sprintf("facts-%s.tar.gz", currentTime.Format(time.RFC3339))
	bundleFile, err := os.Create(path.Join(b.OutputDirectory, bundleFilename))
	if err != nil {
		return err
	}
	defer bundleFile.Close()

	gzipWriter := gzip.NewWriter(bundleFile)
	defer gzipWriter.Close()
	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	store := recorder.NewStore()
	iterator, err := store.Iterate(ctx, recorder.Filter{
		Start: time.Unix(0, 0),
		End:   cutOffTime,
	})
	if err != nil {
		return err
	}
	defer iterator.Close(ctx)

	recordCount := 0

	for {
		ad, ok := iterator.Next(ctx)
		if !ok {
			break
		}

		factJson, err := json.Marshal(ad)
		if err != nil {
			log.Error().Err(err).Msg("Error converting fact to json")
			continue
		}

		filename := strings.ReplaceAll(fmt.Sprintf("%s_%d_%s_%t.json",
			ad.VehicleID, ad.Time.UnixMilli(), ad.StopID, ad.IsArrival), "/", "_")

		header, err := tar.FileInfoHeader(MemoryFileInfo{
			MfiName:    filename,
			MfiSize:    int64(len(factJson)),
			MfiMode:    0644,
			MfiModTime: currentTime,
		}, filename)
		if err != nil {
			log.Error().Err(err).Msg("Failed to generate tar header")
			continue
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			log.Error().Err(err).Msg("Failed to write tar header")
			continue
		}
		if _, err := tarWriter.Write(factJson); err != nil {
			log.Error().Err(err).Msg("Failed to write fact to bundle")
			continue
		}

		recordCount += 1
	}
	if err := iterator.Err(); err != nil {
		return err
	}

	log.Info().Int("facts", recordCount).Str("bundle", bundleFilename).Msg("Bundle complete")

	return nil
}
