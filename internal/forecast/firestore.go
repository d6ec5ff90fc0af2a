package forecast

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// FirestoreSource reads forecast documents from a Firestore collection where
// each document ID is a YYYY-MM-DD date.
type FirestoreSource struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreSource connects to Firestore. The collection path points at the
// per-facility prediction documents, e.g.
// "freespace_data/Hallenbad_City/predictions".
func NewFirestoreSource(ctx context.Context, projectID, collection string) (*FirestoreSource, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreSource{client: client, collection: collection}, nil
}

// Fetch returns all documents with ID >= fromDate.
func (s *FirestoreSource) Fetch(ctx context.Context, fromDate string) (map[string]DayForecast, error) {
	iter := s.client.Collection(s.collection).
		Where(firestore.DocumentID, ">=", fromDate).
		Documents(ctx)
	defer iter.Stop()

	days := make(map[string]DayForecast)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore query failed: %w", err)
		}
		var day DayForecast
		if err := doc.DataTo(&day); err != nil {
			return nil, fmt.Errorf("failed to decode forecast document %s: %w", doc.Ref.ID, err)
		}
		days[doc.Ref.ID] = day
	}
	return days, nil
}

// Close releases the underlying Firestore client.
func (s *FirestoreSource) Close() error {
	return s.client.Close()
}
