package connectors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/pipeline"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/storage"
)

const seenKeyPrefix = "inbox.seen."

// Inbox keeps offer mails as .eml files, named by content hash. Messages
// already seen, or without a readable offer table, are skipped.
type Inbox struct {
	db        *storage.DB
	dir       string
	connector MailConnector
}

type InboxResult struct {
	Fetched int
	Skipped int
	Offers  []string
}

func NewInbox(db *storage.DB, dir string, connector MailConnector) *Inbox {
	return &Inbox{db: db, dir: dir, connector: connector}
}

func (s *Inbox) Fetch(ctx context.Context, label string, max int) (InboxResult, error) {
	log := logging.FromContext(ctx)

	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return InboxResult{}, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return InboxResult{}, err
	}

	result := InboxResult{Fetched: len(messages), Offers: []string{}}
	for _, msg := range messages {
		key := seenKeyPrefix + msg.Provider + "." + msg.MessageID
		if seen, err := s.db.GetMetadata(key); err != nil {
			return result, err
		} else if seen != nil {
			result.Skipped++
			continue
		}

		hashBytes := sha256.Sum256(msg.Raw)
		hash := hex.EncodeToString(hashBytes[:])
		name := hash + ".eml"

		if _, err := pipeline.LoadOffer(name, msg.Raw); err != nil {
			log.Debug().Str("message", msg.MessageID).Str("subject", msg.Subject).Err(err).Msg("inbox: mail without offer")
			result.Skipped++
			if err := s.db.SetMetadata(key, ""); err != nil {
				return result, err
			}
			continue
		}

		rawPath := filepath.Join(s.dir, name)
		if _, err := os.Stat(rawPath); os.IsNotExist(err) {
			if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
				return result, err
			}
		}
		if err := s.db.SetMetadata(key, rawPath); err != nil {
			return result, err
		}

		log.Info().Str("message", msg.MessageID).Str("from", msg.From).Str("path", rawPath).Msg("inbox: offer stored")
		result.Offers = append(result.Offers, rawPath)
	}
	return result, nil
}

// Latest returns the path of the newest offer stored by the last Fetch, or "".
func (r InboxResult) Latest() string {
	if len(r.Offers) == 0 {
		return ""
	}
	return r.Offers[len(r.Offers)-1]
}
