// Package models contains domain types for the fish tracker viewer.
package models

// Location is a WGS84 position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the position lies within latitude [-90,90] and longitude [-180,180].
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// Fish is a tracked entity as reported by the remote tracking service.
// The id is assigned by the service and is authoritative.
type Fish struct {
	ID           string   `json:"id"`
	Species      string   `json:"species"`
	TrackingInfo string   `json:"trackingInfo"`
	WeightKG     float64  `json:"weightKG"`
	Location     Location `json:"location"`
}

// NewFish is the body sent to the tracking service when registering a fish.
type NewFish struct {
	Species      string  `json:"species"`
	TrackingInfo string  `json:"trackingInfo"`
	WeightKG     float64 `json:"weightKG"`
}
