package mongo

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// objectID parses a hex id coming from the domain layer.
func objectID(hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid object id %q: %w", hex, err)
	}
	return oid, nil
}

// objectIDs parses ids, silently skipping malformed ones.
func objectIDs(hexes []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		if oid, err := primitive.ObjectIDFromHex(h); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func hexes(oids []primitive.ObjectID) []string {
	out := make([]string, 0, len(oids))
	for _, oid := range oids {
		out = append(out, oid.Hex())
	}
	return out
}

func optionalObjectID(hex *string) (*primitive.ObjectID, error) {
	if hex == nil {
		return nil, nil
	}
	oid, err := objectID(*hex)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

func optionalHex(oid *primitive.ObjectID) *string {
	if oid == nil {
		return nil
	}
	h := oid.Hex()
	return &h
}
