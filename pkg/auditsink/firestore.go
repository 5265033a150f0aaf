package auditsink

import (
	"context"
	"fmt"
	"log"
	"sync"

	gcpfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/ledger"
)

// FirestoreSink mirrors sealed ledger events and candidate state
// transitions into Firestore for a real-time dashboard. Unlike
// PostgresSink, it is expected to be toggled off in most deployments —
// when Enabled is false every method is a no-op, so callers don't need
// to branch on whether a sink was configured.
type FirestoreSink struct {
	app       *firebase.App
	client    *gcpfirestore.Client
	projectID string
	collection string
	logger    *log.Logger
	enabled   bool
	mu        sync.RWMutex
}

// FirestoreConfig configures a FirestoreSink.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string // empty uses GOOGLE_APPLICATION_CREDENTIALS
	Collection      string // defaults to "pdc_ledger_events"
	Enabled         bool
}

// NewFirestoreSink builds a sink. When cfg.Enabled is false it returns a
// disabled sink immediately without touching the network — useful for
// local development and tests.
func NewFirestoreSink(ctx context.Context, cfg FirestoreConfig) (*FirestoreSink, error) {
	logger := log.New(log.Writer(), "[AuditSink/Firestore] ", log.LstdFlags)
	if !cfg.Enabled {
		return &FirestoreSink{logger: logger, enabled: false}, nil
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("auditsink: firestore project id must not be empty when enabled")
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "pdc_ledger_events"
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("auditsink: initializing firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("auditsink: creating firestore client: %w", err)
	}

	return &FirestoreSink{
		app:        app,
		client:     client,
		projectID:  cfg.ProjectID,
		collection: collection,
		logger:     logger,
		enabled:    true,
	}, nil
}

// IsEnabled reports whether this sink will actually write to Firestore.
func (s *FirestoreSink) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// firestoreEventDoc is the document shape written per ledger event —
// deliberately flatter than ledger.Event so a dashboard can query on
// event_type and timestamp without unpacking the payload.
type firestoreEventDoc struct {
	Sequence     int64       `firestore:"sequence"`
	EventType    string      `firestore:"event_type"`
	TimestampUTC interface{} `firestore:"timestamp_utc"`
	EventHash    string      `firestore:"event_hash"`
	PrevHash     string      `firestore:"prev_hash"`
	Payload      interface{} `firestore:"payload"`
}

// MirrorEvent upserts one ledger event's document, keyed by sequence so
// repeated delivery is idempotent.
func (s *FirestoreSink) MirrorEvent(ctx context.Context, ev ledger.Event) error {
	if !s.IsEnabled() {
		return nil
	}
	doc := firestoreEventDoc{
		Sequence:     int64(ev.Sequence),
		EventType:    string(ev.Type),
		TimestampUTC: ev.TimestampUTC,
		EventHash:    ev.EventHash,
		PrevHash:     ev.PrevHash,
		Payload:      ev.Payload,
	}
	docID := fmt.Sprintf("%020d", ev.Sequence)
	_, err := s.client.Collection(s.collection).Doc(docID).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("auditsink: writing firestore doc %s: %w", docID, err)
	}
	return nil
}

// Close releases the underlying Firestore client. A no-op on a disabled
// sink.
func (s *FirestoreSink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
