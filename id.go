package ragged

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// PointID derives a deterministic UUIDv5 from a chunk id so that repeated
// upserts of the same chunk overwrite the same point in the vector index.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(chunkID)).String()
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
