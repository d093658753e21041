package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// Store keeps one document per session. The expires field carries a TTL
// index, so MongoDB removes stale sessions in the background; DeleteExpired
// covers the gap until its monitor runs.
type Store struct {
	coll      *mongo.Collection
	now       func() time.Time
	stringify bool
}

// Option configures the MongoDB store.
type Option func(*Store)

// WithStringify stores the session values as a JSON string when true and
// as a sub-document when false.
// Default: true.
func WithStringify(stringify bool) Option {
	return func(s *Store) {
		s.stringify = stringify
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a MongoDB-backed session store on coll.
// Call EnsureIndexes once at startup.
func New(coll *mongo.Collection, opts ...Option) *Store {
	s := &Store{
		coll:      coll,
		now:       time.Now,
		stringify: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the TTL index on expires and the user_id index.
// Existing identical indexes are left alone.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_ttl"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("user_id"),
		},
	})
	if err != nil {
		return fmt.Errorf("mongostore: create indexes: %w", err)
	}
	return nil
}

// Get loads a session.
// Returns session.ErrExpired for documents the TTL monitor has not removed yet.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	if !doc.Expires.After(s.now()) {
		return nil, session.ErrExpired
	}

	return doc.session()
}

// Save upserts the session document.
func (s *Store) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	doc, err := newDocument(sess, s.now().Add(ttl), s.stringify)
	if err != nil {
		return err
	}

	_, err = s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: sess.ID}},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

// Delete removes a session. Missing documents are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

// Touch moves the expiry of a live session.
func (s *Store) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "expires", Value: bson.D{{Key: "$gt", Value: s.now()}}},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "expires", Value: expiresAt}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return session.ErrNotFound
	}
	return nil
}

// DeleteExpired removes documents whose expiry has passed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{
		{Key: "expires", Value: bson.D{{Key: "$lte", Value: s.now()}}},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUserID removes every session bound to userID.
func (s *Store) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{{Key: "user_id", Value: userID}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

var (
	_ session.Store     = (*Store)(nil)
	_ session.Cleaner   = (*Store)(nil)
	_ session.UserIndex = (*Store)(nil)
)
