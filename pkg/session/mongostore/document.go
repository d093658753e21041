package mongostore

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// document is the stored shape of a session. Values is either a JSON
// string or an embedded document, depending on the stringify setting.
type document struct {
	ID           string        `bson:"_id"`
	Values       bson.RawValue `bson:"session"`
	UserID       *string       `bson:"user_id,omitempty"`
	IP           string        `bson:"ip,omitempty"`
	UserAgent    string        `bson:"user_agent,omitempty"`
	Expires      time.Time     `bson:"expires"`
	CreatedAt    time.Time     `bson:"created_at"`
	LastActiveAt time.Time     `bson:"last_active_at"`
}

// storedDocument is document for writing; Values holds a string or a bson.D.
type storedDocument struct {
	ID           string    `bson:"_id"`
	Values       any       `bson:"session"`
	UserID       *string   `bson:"user_id,omitempty"`
	IP           string    `bson:"ip,omitempty"`
	UserAgent    string    `bson:"user_agent,omitempty"`
	Expires      time.Time `bson:"expires"`
	CreatedAt    time.Time `bson:"created_at"`
	LastActiveAt time.Time `bson:"last_active_at"`
}

func newDocument(s *session.Session, expires time.Time, stringify bool) (*storedDocument, error) {
	values, err := encodeValues(s.Values, stringify)
	if err != nil {
		return nil, err
	}

	var userID *string
	if s.IsAuthenticated() {
		userID = s.UserID
	}

	return &storedDocument{
		ID:           s.ID,
		Values:       values,
		UserID:       userID,
		IP:           s.IP,
		UserAgent:    s.UserAgent,
		Expires:      expires,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}, nil
}

func (d *document) session() (*session.Session, error) {
	values, err := decodeValues(d.Values)
	if err != nil {
		return nil, err
	}

	return &session.Session{
		ID:           d.ID,
		Values:       values,
		UserID:       d.UserID,
		IP:           d.IP,
		UserAgent:    d.UserAgent,
		ExpiresAt:    d.Expires,
		CreatedAt:    d.CreatedAt,
		LastActiveAt: d.LastActiveAt,
	}, nil
}

// encodeValues goes through JSON in both modes so that a session reads back
// the same whichever mode wrote it. Subdocuments are built from the decoded
// JSON tree directly; keys such as "$date" stay plain keys.
func encodeValues(values map[string]any, stringify bool) (any, error) {
	if values == nil {
		values = map[string]any{}
	}

	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("mongostore: encode session: %w", err)
	}

	if stringify {
		return string(data), nil
	}

	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("mongostore: encode session: %w", err)
	}
	return toBSON(tree), nil
}

func toBSON(v any) any {
	switch v := v.(type) {
	case map[string]any:
		doc := make(bson.D, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			doc = append(doc, bson.E{Key: k, Value: toBSON(v[k])})
		}
		return doc
	case []any:
		arr := make(bson.A, len(v))
		for i, e := range v {
			arr[i] = toBSON(e)
		}
		return arr
	default:
		return v
	}
}

func decodeValues(raw bson.RawValue) (map[string]any, error) {
	switch raw.Type {
	case bson.TypeString:
		values := map[string]any{}
		if err := json.Unmarshal([]byte(raw.StringValue()), &values); err != nil {
			return nil, fmt.Errorf("mongostore: decode session: %w", err)
		}
		return values, nil
	case bson.TypeEmbeddedDocument:
		values, err := documentValues(raw.Document())
		if err != nil {
			return nil, fmt.Errorf("mongostore: decode session: %w", err)
		}
		return values, nil
	case bson.TypeNull, 0:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("mongostore: decode session: unexpected bson type %s", raw.Type)
	}
}

// documentValues maps a subdocument onto the types json.Unmarshal yields.
func documentValues(doc bson.Raw) (map[string]any, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(elems))
	for _, e := range elems {
		v, err := fromBSON(e.Value())
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", e.Key(), err)
		}
		values[e.Key()] = v
	}
	return values, nil
}

func fromBSON(v bson.RawValue) (any, error) {
	switch v.Type {
	case bson.TypeEmbeddedDocument:
		return documentValues(v.Document())
	case bson.TypeArray:
		elems, err := v.Array().Values()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			if out[i], err = fromBSON(e); err != nil {
				return nil, err
			}
		}
		return out, nil
	case bson.TypeString:
		return v.StringValue(), nil
	case bson.TypeDouble:
		return v.Double(), nil
	case bson.TypeInt32:
		return float64(v.Int32()), nil
	case bson.TypeInt64:
		return float64(v.Int64()), nil
	case bson.TypeBoolean:
		return v.Boolean(), nil
	case bson.TypeNull, bson.TypeUndefined:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected bson type %s", v.Type)
	}
}
