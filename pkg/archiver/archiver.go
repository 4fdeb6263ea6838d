package archiver

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/redis_client"
	"github.com/rs/zerolog/log"
)

// Subscriber drains the raw AVL archive topic into daily files. The tracker
// republishes every received payload to the topic before any parsing, so
// the files are a faithful audit trail of what the feed actually sent.
type Subscriber struct {
	Topic           string
	OutputDirectory string

	currentDay  string
	currentFile *os.File
}

// Run consumes the archive topic until the context is cancelled. Payloads
// are appended as one line each to a file per calendar day.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := redis_client.Client.Subscribe(ctx, s.Topic)
	defer pubsub.Close()

	log.Info().Str("topic", s.Topic).Str("directory", s.OutputDirectory).Msg("Archiving raw AVL payloads")

	archived := 0

	for {
		select {
		case <-ctx.Done():
			s.closeCurrentFile()
			log.Info().Int("archived", archived).Msg("Archive subscriber stopped")
			return nil
		case message, ok := <-pubsub.Channel():
			if !ok {
				s.closeCurrentFile()
				return nil
			}

			if err := s.append(message.Payload); err != nil {
				log.Error().Err(err).Msg("Failed to archive payload")
				continue
			}

			archived += 1
		}
	}
}

func (s *Subscriber) append(payload string) error {
	day := time.Now().Format("2006-01-02")

	if s.currentFile == nil || day != s.currentDay {
		s.closeCurrentFile()

		filename := path.Join(s.OutputDirectory, fmt.Sprintf("avl-%s.jsonl", day))
		file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}

		s.currentDay = day
		s.currentFile = file
	}

	_, err := fmt.Fprintln(s.currentFile, payload)
	return err
}

func (s *Subscriber) closeCurrentFile() {
	if s.currentFile != nil {
		s.currentFile.Close()
		s.currentFile = nil
	}
}
