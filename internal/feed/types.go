package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pool-status-backend/internal/status"
)

// Status describes the connection lifecycle of the feed client.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Snapshot is the latest known occupancy reading for the facility. It is
// built fresh from every matching feed message and never partially merged.
type Snapshot struct {
	FacilityName        string    `json:"facilityName"`
	FreeSpaces          int       `json:"freeSpaces"`
	TotalCapacity       int       `json:"totalCapacity"`
	CurrentFill         int       `json:"currentFill"`
	AvailabilityPercent float64   `json:"availabilityPercent"`
	ReceivedAt          time.Time `json:"receivedAt"`
}

// State is the externally visible connection state plus the last snapshot.
type State struct {
	Status            Status    `json:"status"`
	ReconnectAttempts int       `json:"reconnectAttempts"`
	RetryExhausted    bool      `json:"retryExhausted"`
	Snapshot          *Snapshot `json:"snapshot,omitempty"`
}

// flexInt tolerates the feed sending counts either as JSON numbers or as
// numeric strings ("45").
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Some payloads carry "45.0"; accept the integer part.
		v, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid count %q: %w", s, err)
		}
		n = int(v)
	}
	*f = flexInt(n)
	return nil
}

// facilityRecord is one element of the feed's multi-facility payload.
type facilityRecord struct {
	Name        string  `json:"name"`
	FreeSpace   flexInt `json:"freespace"`
	MaxSpace    flexInt `json:"maxspace"`
	CurrentFill flexInt `json:"currentfill"`
}

// decodeSnapshot parses a raw feed message and extracts the record for the
// named facility. A payload that does not parse, or that carries no record
// with that exact name, yields an error; the caller drops the message.
func decodeSnapshot(raw []byte, facility string, now time.Time) (*Snapshot, error) {
	var records []facilityRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("malformed feed message: %w", err)
	}

	for _, rec := range records {
		if rec.Name != facility {
			continue
		}
		return &Snapshot{
			FacilityName:        rec.Name,
			FreeSpaces:          int(rec.FreeSpace),
			TotalCapacity:       int(rec.MaxSpace),
			CurrentFill:         int(rec.CurrentFill),
			AvailabilityPercent: status.AvailabilityPercent(int(rec.FreeSpace), int(rec.MaxSpace)),
			ReceivedAt:          now,
		}, nil
	}
	return nil, fmt.Errorf("no record for facility %q in feed message", facility)
}
