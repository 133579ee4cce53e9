package types

// TrackingState is the lifecycle state of a live location subscription
type TrackingState string

const (
	TrackingStateClosed  TrackingState = "closed"
	TrackingStateOpening TrackingState = "opening"
	TrackingStateActive  TrackingState = "active"
	TrackingStateClosing TrackingState = "closing"
)

// String returns the string representation of the tracking state
func (s TrackingState) String() string {
	return string(s)
}

// TrackingStatus is the activity flag stored on a realtime location record
type TrackingStatus string

const (
	TrackingStatusInactive TrackingStatus = "0"
	TrackingStatusActive   TrackingStatus = "1"
)

// IsActive reports whether the device is expected to broadcast positions
func (s TrackingStatus) IsActive() bool {
	return s == TrackingStatusActive
}

// String returns the string representation of the tracking status
func (s TrackingStatus) String() string {
	return string(s)
}
