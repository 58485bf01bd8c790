package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// SnapshotVersion is the schema version written into new snapshots.
const SnapshotVersion = 1

// ErrInvalidSnapshot is returned when a payload has no array-shaped points field.
var ErrInvalidSnapshot = errors.New("snapshot has no points array")

// Snapshot is the persisted form of the point list.
type Snapshot struct {
	Version   int     `json:"version"`
	CreatedAt string  `json:"createdAt"`
	Points    []Point `json:"points"`
}

// NewSnapshot captures points at the given instant.
func NewSnapshot(points []Point, now time.Time) Snapshot {
	return Snapshot{
		Version:   SnapshotVersion,
		CreatedAt: now.UTC().Format(time.RFC3339Nano),
		Points:    ClonePoints(points),
	}
}

// ParseSnapshot decodes a payload and checks that points is present and an array.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var probe struct {
		Points json.RawMessage `json:"points"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(probe.Points)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, ErrInvalidSnapshot
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	snap.normalizeNeighbors()
	return &snap, nil
}

// Normalized returns a copy whose points all carry a non-nil neighbor list,
// the form Save writes and Load returns.
func (s Snapshot) Normalized() Snapshot {
	s.Points = ClonePoints(s.Points)
	return s
}

func (s *Snapshot) normalizeNeighbors() {
	for i := range s.Points {
		if s.Points[i].Neighbors == nil {
			s.Points[i].Neighbors = []string{}
		}
	}
}

// Accepted createdAt layouts. Fractional seconds are optional in each.
var (
	zonedLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04Z0700",
	}
	// Date-time without an offset is local time.
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
	}
)

// dateOnly is read as midnight UTC.
const dateOnly = "2006-01-02"

// CreatedTime parses CreatedAt as an ISO-8601 timestamp: RFC 3339, offsets
// without a colon, minute precision, no offset (local) or a bare date (UTC).
func (s Snapshot) CreatedTime() (time.Time, error) {
	value := strings.TrimSpace(s.CreatedAt)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Parse(dateOnly, value)
}

// IsExpired reports whether the snapshot is older than ttl at now. A snapshot
// whose creation time cannot be parsed is always expired.
func IsExpired(s Snapshot, ttl time.Duration, now time.Time) bool {
	created, err := s.CreatedTime()
	if err != nil {
		return true
	}
	return now.Sub(created) > ttl
}
