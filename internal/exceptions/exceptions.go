// Package exceptions curates the suppression records consumed by the
// reconciliation engine. Records are externally authored - every one
// carries a ticket id and an expiry - and loaded from YAML files through
// the CLI. The pipeline itself only ever reads the table.
package exceptions

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// knownKinds are the mismatch types an exception may suppress.
var knownKinds = map[model.MismatchKind]bool{
	model.MismatchPaymentOrderMissing: true,
}

// fileRecord is one YAML entry.
type fileRecord struct {
	MismatchType string    `yaml:"mismatch_type"`
	Key          string    `yaml:"key"`
	TicketID     string    `yaml:"ticket_id"`
	Expires      time.Time `yaml:"expires"`
}

// file is the YAML document shape:
//
//	exceptions:
//	  - mismatch_type: payment_order_missing
//	    key: P2
//	    ticket_id: DATA-1234
//	    expires: 2026-12-31T00:00:00Z
type file struct {
	Exceptions []fileRecord `yaml:"exceptions"`
}

// Parse reads and validates an exceptions YAML document.
func Parse(r io.Reader) ([]model.ExceptionRecord, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode exceptions yaml: %w", err)
	}

	records := make([]model.ExceptionRecord, 0, len(doc.Exceptions))
	for i, fr := range doc.Exceptions {
		kind := model.MismatchKind(fr.MismatchType)
		switch {
		case !knownKinds[kind]:
			return nil, fmt.Errorf("exception %d: unknown mismatch_type %q", i, fr.MismatchType)
		case fr.Key == "":
			return nil, fmt.Errorf("exception %d: key must not be empty", i)
		case fr.TicketID == "":
			return nil, fmt.Errorf("exception %d: ticket_id must not be empty", i)
		case fr.Expires.IsZero():
			return nil, fmt.Errorf("exception %d: expires must be set", i)
		}
		records = append(records, model.ExceptionRecord{
			Kind:     kind,
			Key:      fr.Key,
			TicketID: fr.TicketID,
			Expires:  fr.Expires.UTC(),
		})
	}
	return records, nil
}

// LoadFile parses a YAML file and upserts its records into the store.
// Returns the number of records loaded.
func LoadFile(ctx context.Context, s *store.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	for _, rec := range records {
		if err := s.UpsertException(ctx, rec); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}
