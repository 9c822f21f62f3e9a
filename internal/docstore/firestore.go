package docstore

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore implements [Gateway] against Cloud Firestore. All documents live
// under companies/{scope}/{collection}/{id} so multiple tenants can share one
// Firebase project.
type Firestore struct {
	client *firestore.Client
	scope  string
	log    *slog.Logger
}

// NewFirestore initializes the Firebase app and Firestore client for the
// given project, scoped to the company identifier.
func NewFirestore(ctx context.Context, projectID, credentialsPath, scope string, logger *slog.Logger) (*Firestore, error) {
	if scope == "" {
		return nil, fmt.Errorf("company scope is required")
	}

	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing Firestore client: %w", err)
	}

	logger.Info("connected to Firestore", "project", projectID, "scope", scope)

	return &Firestore{client: client, scope: scope, log: logger}, nil
}

// Close releases the underlying Firestore client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

// col returns the scoped collection reference.
func (f *Firestore) col(collection string) *firestore.CollectionRef {
	return f.client.Collection("companies").Doc(f.scope).Collection(collection)
}

func (f *Firestore) Fetch(ctx context.Context, collection, id string) (map[string]any, error) {
	doc, err := f.col(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s: %w", collection, id, err)
	}
	return doc.Data(), nil
}

func (f *Firestore) Save(ctx context.Context, collection, id string, payload map[string]any) error {
	if _, err := f.col(collection).Doc(id).Set(ctx, payload); err != nil {
		return fmt.Errorf("saving %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		if _, isDelete := value.(deleteSentinel); isDelete {
			value = firestore.Delete
		}
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	if _, err := f.col(collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Query(ctx context.Context, collection string, conds []Cond) ([]Snapshot, error) {
	q := f.col(collection).Query
	for _, c := range conds {
		q = q.Where(c.Field, c.Op, c.Value)
	}
	return f.drain(collection, q.Documents(ctx))
}

func (f *Firestore) FetchAll(ctx context.Context, collection string) ([]Snapshot, error) {
	return f.drain(collection, f.col(collection).Documents(ctx))
}

// drain consumes a document iterator into snapshots, skipping documents that
// fail to decode rather than aborting the whole read.
func (f *Firestore) drain(collection string, iter *firestore.DocumentIterator) ([]Snapshot, error) {
	defer iter.Stop()

	var snaps []Snapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating %s: %w", collection, err)
		}
		snaps = append(snaps, Snapshot{ID: doc.Ref.ID, Data: doc.Data()})
	}
	return snaps, nil
}

var _ Gateway = (*Firestore)(nil)
