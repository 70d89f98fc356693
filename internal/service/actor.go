package service

import (
	"custodia/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated caller context handed in by the HTTP layer:
// identity, role and the station/zone scopes the role grants.
type Actor struct {
	ID         uuid.UUID
	Role       model.Role
	StationIDs []uuid.UUID
	ZoneID     *uuid.UUID
}

// HasStation reports whether the actor may act on the given station.
// Admins pass every scope check.
func (a Actor) HasStation(stationID uuid.UUID) bool {
	if a.Role.IsAdmin() {
		return true
	}
	for _, id := range a.StationIDs {
		if id == stationID {
			return true
		}
	}
	return false
}

// HasZone reports whether the actor may act on the given zone.
func (a Actor) HasZone(zoneID uuid.UUID) bool {
	if a.Role.IsAdmin() {
		return true
	}
	return a.ZoneID != nil && *a.ZoneID == zoneID
}
