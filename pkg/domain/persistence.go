package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// RecordKind names the kind of record a persistence hook receives.
type RecordKind string

// Record kinds emitted by the core.
const (
	RecordComponent  RecordKind = "component"
	RecordNode       RecordKind = "node"
	RecordEdge       RecordKind = "edge"
	RecordFace       RecordKind = "face"
	RecordRasterData RecordKind = "rasterdata"
	RecordSystem     RecordKind = "system"
	RecordAttribute  RecordKind = "attribute"
)

// RecordKindOf maps a component kind to the record kind used for it.
func RecordKindOf(k Kind) RecordKind {
	switch k {
	case KindNode:
		return RecordNode
	case KindEdge:
		return RecordEdge
	case KindFace:
		return RecordFace
	case KindRasterData:
		return RecordRasterData
	case KindSystem:
		return RecordSystem
	default:
		return RecordComponent
	}
}

// PersistHook receives fire-and-forget notifications for every structural and
// attribute change. Implementations must not block for long and must handle
// their own failures; nothing is reported back to the caller.
type PersistHook interface {
	Upsert(kind RecordKind, id, ownerID string, fields map[string]any)
	Delete(kind RecordKind, id string)
}

// NopPersistHook discards every notification.
type NopPersistHook struct{}

// Upsert implements PersistHook.
func (NopPersistHook) Upsert(RecordKind, string, string, map[string]any) {}

// Delete implements PersistHook.
func (NopPersistHook) Delete(RecordKind, string) {}

// AttributeRecordID returns the record id of an attribute owned by ownerID.
func AttributeRecordID(ownerID, name string) string { return ownerID + "/" + name }

// Record is one persisted notification as stored by a backend.
type Record struct {
	Kind    RecordKind     `json:"kind"`
	ID      string         `json:"id"`
	OwnerID string         `json:"owner_id,omitempty"`
	Fields  map[string]any `json:"fields"`
}

// RecordStore is a durable backend for records. Backends keep the latest
// record per (kind, id); later writes replace earlier ones.
type RecordStore interface {
	Put(ctx context.Context, rec Record) error
	Remove(ctx context.Context, kind RecordKind, id string) error
	Get(ctx context.Context, kind RecordKind, id string) (Record, bool, error)
	List(ctx context.Context, kind RecordKind) ([]Record, error)
	Close() error
}

// EncodeFields renders record fields as JSON. Byte slices become base64
// strings, so decoded fields hold strings where the hook received bytes.
func EncodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode record fields: %w", err)
	}
	return data, nil
}

// DecodeFields parses fields written by EncodeFields.
func DecodeFields(data []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode record fields: %w", err)
	}
	return fields, nil
}
