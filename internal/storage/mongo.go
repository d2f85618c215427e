// Package storage is the durable side of the bot: MovieRecords indexed from
// captions and the source-channel links that route new posts into scopes.
package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moviedex-tg-bot/internal/extract"
)

// ErrDuplicate reports an insert that collided with an existing
// (scope_id, unique_media_id) pair. Indexing treats it as success-with-note.
var ErrDuplicate = errors.New("storage: duplicate record")

// MovieRecord is one media item indexed from a source channel. Optional
// fields keep their zero value when the caption did not yield them; they are
// stored with omitempty so absence survives the round trip.
type MovieRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ScopeID       int64              `bson:"scope_id" json:"scope_id"`
	UniqueMediaID string             `bson:"unique_media_id,omitempty" json:"unique_media_id,omitempty"`
	Title         string             `bson:"title,omitempty" json:"title,omitempty"`
	Year          int                `bson:"year,omitempty" json:"year,omitempty"`
	Quality       string             `bson:"quality,omitempty" json:"quality,omitempty"`
	Languages     []string           `bson:"languages,omitempty" json:"languages,omitempty"`
	SourceTag     string             `bson:"source_tag,omitempty" json:"source_tag,omitempty"`
	Season        int                `bson:"season,omitempty" json:"season,omitempty"`
	Episode       extract.Episode    `bson:"episode,omitempty" json:"episode,omitempty"`
	Codec         string             `bson:"codec,omitempty" json:"codec,omitempty"`
	Caption       string             `bson:"caption,omitempty" json:"caption,omitempty"`
	Link          string             `bson:"link,omitempty" json:"link,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`

	// Score carries the $text relevance at query time; never persisted.
	Score float64 `bson:"score,omitempty" json:"score,omitempty"`
}

// ChannelLink maps a source channel to the scope (group) its posts are
// indexed into.
type ChannelLink struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	SourceID int64              `bson:"source_id"`
	TargetID int64              `bson:"target_id"`
	AddedBy  int64              `bson:"added_by,omitempty"`
	AddedAt  time.Time          `bson:"added_at"`
}

type Mongo struct {
	client *mongo.Client
	movies *mongo.Collection
	links  *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	db := client.Database(database)
	m := &Mongo{
		client: client,
		movies: db.Collection("movies"),
		links:  db.Collection("links"),
	}
	m.ensureIndexes(ctx)
	return m, nil
}

// ensureIndexes is best effort: a deployment without index privileges can
// still serve queries, just slower.
func (m *Mongo) ensureIndexes(ctx context.Context) {
	_, _ = m.movies.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "scope_id", Value: 1}, {Key: "unique_media_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"unique_media_id": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "scope_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "caption", Value: "text"}},
			Options: options.Index().SetWeights(bson.M{"title": 5, "caption": 1}),
		},
	})
	_, _ = m.links.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "source_id", Value: 1}, {Key: "target_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// SaveMovie inserts one record. Records are never mutated in place: a
// collision on (scope_id, unique_media_id) comes back as ErrDuplicate and
// the stored record stays as it was.
func (m *Mongo) SaveMovie(ctx context.Context, rec MovieRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ID = primitive.NilObjectID
	rec.Score = 0
	_, err := m.movies.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

var searchableFields = []string{"title", "caption", "quality", "languages", "source_tag", "codec"}

// termFilter requires every whitespace-delimited word of the query to match
// at least one searchable field, case-insensitively.
func termFilter(query string) []bson.M {
	var and []bson.M
	for _, word := range strings.Fields(query) {
		safe := regexp.QuoteMeta(word)
		or := make([]bson.M, 0, len(searchableFields))
		for _, f := range searchableFields {
			or = append(or, bson.M{f: bson.M{"$regex": safe, "$options": "i"}})
		}
		and = append(and, bson.M{"$or": or})
	}
	return and
}

// SearchMovies runs the hybrid query: a $text prefilter for relevance plus
// the conjunctive per-word regex chain, falling back to the regex chain
// alone when the text path is unavailable (no text index, older server).
func (m *Mongo) SearchMovies(ctx context.Context, scope int64, query string, limit int) ([]MovieRecord, error) {
	and := termFilter(query)
	if len(and) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	textFilter := bson.M{
		"scope_id": scope,
		"$text":    bson.M{"$search": query},
		"$and":     and,
	}
	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}).
		SetLimit(int64(limit))

	recs, err := m.findMovies(ctx, textFilter, opts)
	if err == nil {
		return recs, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	recs, fbErr := m.findMovies(ctx, bson.M{"scope_id": scope, "$and": and}, options.Find().SetLimit(int64(limit)))
	if fbErr != nil {
		return nil, err
	}
	return recs, nil
}

func (m *Mongo) findMovies(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]MovieRecord, error) {
	cur, err := m.movies.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var recs []MovieRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// DeleteScope removes every record for a scope and returns the count.
func (m *Mongo) DeleteScope(ctx context.Context, scope int64) (int64, error) {
	res, err := m.movies.DeleteMany(ctx, bson.M{"scope_id": scope})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *Mongo) CountScope(ctx context.Context, scope int64) (int64, error) {
	return m.movies.CountDocuments(ctx, bson.M{"scope_id": scope})
}

// AddLink binds a source channel to a target scope. Re-adding an existing
// pair refreshes the metadata instead of failing.
func (m *Mongo) AddLink(ctx context.Context, sourceID, targetID, addedBy int64) error {
	_, err := m.links.UpdateOne(ctx,
		bson.M{"source_id": sourceID, "target_id": targetID},
		bson.M{"$set": bson.M{
			"source_id": sourceID,
			"target_id": targetID,
			"added_by":  addedBy,
			"added_at":  time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// RemoveLink unbinds every source channel from a target scope.
func (m *Mongo) RemoveLink(ctx context.Context, targetID int64) (int64, error) {
	res, err := m.links.DeleteMany(ctx, bson.M{"target_id": targetID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// TargetsForSource lists the scopes that index posts from a source channel.
func (m *Mongo) TargetsForSource(ctx context.Context, sourceID int64) ([]int64, error) {
	cur, err := m.links.Find(ctx, bson.M{"source_id": sourceID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var links []ChannelLink
	if err := cur.All(ctx, &links); err != nil {
		return nil, err
	}
	targets := make([]int64, 0, len(links))
	for _, l := range links {
		targets = append(targets, l.TargetID)
	}
	return targets, nil
}

// LinkedChannel returns the source channel bound to a scope, or 0 when the
// scope has none.
func (m *Mongo) LinkedChannel(ctx context.Context, targetID int64) (int64, error) {
	var link ChannelLink
	err := m.links.FindOne(ctx, bson.M{"target_id": targetID}).Decode(&link)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return link.SourceID, nil
}
