package memory

import (
	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	location *locationRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		location: newLocationRepository(),
	}
}

func (m *Memory) Location() interfaces.LocationRepository {
	return m.location
}

func (m *Memory) Close() error {
	m.location.closeAll()
	return nil
}
