package dashboard

import (
	"sync"
	"time"

	"orin/pkg/telemetry"
)

const EventLocationUpdate = "location_update"

// Update is the JSON body of a location_update event.
type Update struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Method     string  `json:"method"`
	Location   string  `json:"location"`
	LastUpdate string  `json:"last_update"`
}

type Event struct {
	Event string `json:"event"`
	Data  Update `json:"data"`
}

// State holds the latest location. Writers come from MQTT callbacks and
// readers from HTTP handlers and the button.
type State struct {
	mu  sync.RWMutex
	loc telemetry.Location
	now func() time.Time
}

func NewState() *State {
	return &State{
		loc: telemetry.Location{Method: telemetry.MethodUnknown, Place: telemetry.UnknownPlace},
		now: time.Now,
	}
}

func (s *State) Set(loc telemetry.Location) {
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = s.now()
	}
	s.mu.Lock()
	s.loc = loc
	s.mu.Unlock()
}

func (s *State) Get() telemetry.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc
}

// Update renders the current location with a relative timestamp.
func (s *State) Update() Update {
	loc := s.Get()
	last := "never"
	if !loc.UpdatedAt.IsZero() {
		last = telemetry.TimeAgo(loc.UpdatedAt, s.now())
	}
	return Update{
		Latitude:   loc.Lat,
		Longitude:  loc.Lon,
		Method:     string(loc.Method),
		Location:   loc.Place,
		LastUpdate: last,
	}
}
