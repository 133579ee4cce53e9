package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
)

// LocationRecord is the realtime record stored at owner_car/{id}. Values are
// kept as strings because devices write them that way.
type LocationRecord struct {
	Status    types.TrackingStatus `json:"status" firestore:"status" redis:"status"`
	Latitude  string               `json:"latitude" firestore:"latitude" redis:"latitude"`
	Longitude string               `json:"longitude" firestore:"longitude" redis:"longitude"`
}

// Position is a parsed coordinate pair
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Fix returns the position carried by the record. It returns false ("no
// fix") when the record is nil, tracking is inactive, or either coordinate is
// absent, zero or non-numeric.
func (r *LocationRecord) Fix() (Position, bool) {
	if r == nil || !r.Status.IsActive() {
		return Position{}, false
	}

	lat, ok := parseCoordinate(r.Latitude)
	if !ok {
		return Position{}, false
	}
	lon, ok := parseCoordinate(r.Longitude)
	if !ok {
		return Position{}, false
	}
	return Position{Latitude: lat, Longitude: lon}, true
}

func parseCoordinate(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// TrackedEntity is the last known state of an entity while a tracking
// session is open
type TrackedEntity struct {
	ID                 types.EntityID `json:"id"`
	LastKnownLatitude  float64        `json:"last_known_latitude"`
	LastKnownLongitude float64        `json:"last_known_longitude"`
	HasFix             bool           `json:"has_fix"`
	Active             bool           `json:"active"`
}

// TrackingEventType distinguishes tracking events
type TrackingEventType string

const (
	// TrackingEventFix carries a new position
	TrackingEventFix TrackingEventType = "fix"
	// TrackingEventNoFix tells the view to remove its marker
	TrackingEventNoFix TrackingEventType = "no_fix"
)

// TrackingEvent is delivered to a tracking view. First is set on the first
// fix of a session, when the view should center and zoom instead of pan.
type TrackingEvent struct {
	Type     TrackingEventType `json:"type"`
	EntityID types.EntityID    `json:"entity_id"`
	Position *Position         `json:"position,omitempty"`
	First    bool              `json:"first,omitempty"`
}
