package posts

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	"github.com/solshare/contentiq/internal/domain"
)

// Hash field names. creator, scene_type and timestamp are indexed for
// filtered queries; the rest are payload-only.
const (
	fieldDescription = "description"
	fieldCaption     = "caption"
	fieldTags        = "tags"
	fieldSceneType   = "scene_type"
	fieldMood        = "mood"
	fieldCreator     = "creator"
	fieldTimestamp   = "timestamp"
	fieldVector      = "__vector"
)

// payloadReturnFields are requested from FT.SEARCH for candidate payloads.
var payloadReturnFields = []string{
	fieldDescription, fieldCaption, fieldTags, fieldSceneType,
	fieldMood, fieldCreator, fieldTimestamp, "__vector_score",
}

// buildHashFields converts a record into a flat map for HSET.
func buildHashFields(rec domain.PostRecord) map[string]string {
	m := map[string]string{
		fieldVector:      vectorToBytes(rec.Vector),
		fieldDescription: rec.Payload.Description,
		fieldCaption:     rec.Payload.Caption,
		fieldSceneType:   rec.Payload.SceneType,
		fieldMood:        rec.Payload.Mood,
		fieldCreator:     rec.Payload.Creator,
		fieldTimestamp:   strconv.FormatInt(rec.Payload.Timestamp, 10),
	}
	// Tags can contain arbitrary separators, so they round-trip as JSON.
	if data, err := json.Marshal(rec.Payload.Tags); err == nil {
		m[fieldTags] = string(data)
	}
	return m
}

// parseHashFields converts a flat hash map back into a record.
func parseHashFields(postID string, m map[string]string) domain.PostRecord {
	return domain.PostRecord{
		PostID:  postID,
		Vector:  bytesToVector(m[fieldVector]),
		Payload: parsePayloadFields(m),
	}
}

// parsePayloadFields extracts the payload bag from hash fields.
func parsePayloadFields(m map[string]string) domain.PostPayload {
	p := domain.PostPayload{
		Description: m[fieldDescription],
		Caption:     m[fieldCaption],
		SceneType:   m[fieldSceneType],
		Mood:        m[fieldMood],
		Creator:     m[fieldCreator],
	}
	if raw := m[fieldTags]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &p.Tags)
	}
	if raw := m[fieldTimestamp]; raw != "" {
		p.Timestamp, _ = strconv.ParseInt(raw, 10, 64)
	}
	return p
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
