package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type locationDocument struct {
	Status    string `firestore:"status"`
	Latitude  string `firestore:"latitude"`
	Longitude string `firestore:"longitude"`
}

func documentToRecord(doc *locationDocument) *model.LocationRecord {
	return &model.LocationRecord{
		Status:    types.TrackingStatus(doc.Status),
		Latitude:  doc.Latitude,
		Longitude: doc.Longitude,
	}
}

type locationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newLocationRepository(client *firestore.Client) *locationRepository {
	return &locationRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *locationRepository) locationsCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_owner_car"
	}
	return "owner_car"
}

func (r *locationRepository) doc(id types.EntityID) *firestore.DocumentRef {
	return r.client.Collection(r.locationsCollection()).Doc(id.String())
}

func snapshotToRecord(snap *firestore.DocumentSnapshot) (*model.LocationRecord, error) {
	if snap == nil || !snap.Exists() {
		return nil, nil
	}
	var doc locationDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode location document", goerr.V("doc_id", snap.Ref.ID))
	}
	return documentToRecord(&doc), nil
}

func (r *locationRepository) Get(ctx context.Context, id types.EntityID) (*model.LocationRecord, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid entity ID")
	}

	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get location", goerr.V(model.EntityIDKey, id))
	}

	return snapshotToRecord(snap)
}

func (r *locationRepository) Put(ctx context.Context, id types.EntityID, record *model.LocationRecord) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity ID")
	}
	if record == nil {
		return goerr.New("location record is nil", goerr.V(model.EntityIDKey, id))
	}

	doc := &locationDocument{
		Status:    record.Status.String(),
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
	}
	if _, err := r.doc(id).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put location", goerr.V(model.EntityIDKey, id))
	}
	return nil
}

func (r *locationRepository) UpdateStatus(ctx context.Context, id types.EntityID, st types.TrackingStatus) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity ID")
	}

	// MergeAll keeps latitude/longitude and creates the document if needed
	_, err := r.doc(id).Set(ctx, map[string]any{"status": st.String()}, firestore.MergeAll)
	if err != nil {
		return goerr.Wrap(err, "failed to update tracking status",
			goerr.V(model.EntityIDKey, id),
			goerr.V("status", st))
	}
	return nil
}

func (r *locationRepository) Subscribe(ctx context.Context, id types.EntityID) (interfaces.LocationStream, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid entity ID")
	}

	sctx, cancel := context.WithCancel(ctx)
	return &locationStream{
		id:     id,
		ctx:    sctx,
		cancel: cancel,
		iter:   r.doc(id).Snapshots(sctx),
	}, nil
}

type locationStream struct {
	id     types.EntityID
	ctx    context.Context
	cancel context.CancelFunc
	iter   *firestore.DocumentSnapshotIterator
}

func (s *locationStream) Next() (*model.LocationRecord, error) {
	snap, err := s.iter.Next()
	if err != nil {
		if errors.Is(err, iterator.Done) || s.ctx.Err() != nil || status.Code(err) == codes.Canceled {
			return nil, goerr.Wrap(model.ErrStreamClosed, "firestore location stream closed", goerr.V(model.EntityIDKey, s.id))
		}
		return nil, goerr.Wrap(err, "failed to receive location snapshot", goerr.V(model.EntityIDKey, s.id))
	}

	return snapshotToRecord(snap)
}

func (s *locationStream) Close() error {
	s.cancel()
	s.iter.Stop()
	return nil
}
