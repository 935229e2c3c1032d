// Package convert maps domain values to the structpb messages carried by the
// petcare.v1 gRPC service. Field names follow the model's JSON tags and
// timestamps travel as RFC 3339 strings.
package convert

import (
	"encoding/json"
	"fmt"

	u "github.com/gofrs/uuid/v5"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	model "github.com/and161185/pet-keeper/internal/model"
)

// PetRequest addresses one pet; Name is used by adopt and Limit by history.
type PetRequest struct {
	PetID string `json:"pet_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ActionReply is returned by status and every mutating call.
type ActionReply struct {
	Pet     model.Pet   `json:"pet"`
	Message string      `json:"message"`
	Delta   model.Delta `json:"delta"`
	Tier    string      `json:"tier,omitempty"`
	Cured   []string    `json:"cured,omitempty"`
}

// ListReply carries the caller's pet ids.
type ListReply struct {
	PetIDs []string `json:"pet_ids"`
}

// HistoryReply carries activity log entries, oldest first.
type HistoryReply struct {
	Entries []model.ActivityEntry `json:"entries"`
}

// ToStruct encodes v through its JSON representation. v must encode to a JSON object.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// FromStruct decodes s into v. A nil struct decodes as an empty object.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

// PetUUID parses the request's pet id.
func (r PetRequest) PetUUID() (u.UUID, error) {
	id, err := u.FromString(r.PetID)
	if err != nil {
		return u.Nil, fmt.Errorf("invalid pet_id: %w", err)
	}
	return id, nil
}

// IDStrings renders ids for a ListReply.
func IDStrings(ids []u.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
