package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	TopicLocation       = "location/live"
	TopicObjectQuery    = "query/object"
	TopicObjectResponse = "response/object"
	TopicVLMResponse    = "response/vlm"

	ObjectQueryPayload = "object"

	UnknownPlace = "Unknown Location"
)

type Method string

const (
	MethodGPS     Method = "GPS"
	MethodIP      Method = "IP"
	MethodUnknown Method = "Unknown"
)

var ErrShortPayload = errors.New("payload does not contain enough values")

// Location is the record carried on TopicLocation. It is replaced wholesale
// on every update.
type Location struct {
	Lat       float64
	Lon       float64
	Method    Method
	Place     string
	UpdatedAt time.Time
}

// Payload renders "lat,lon,method,place".
func (l Location) Payload() string {
	method := l.Method
	if method == "" {
		method = MethodUnknown
	}
	place := l.Place
	if place == "" {
		place = UnknownPlace
	}
	return fmt.Sprintf("%s,%s,%s,%s",
		strconv.FormatFloat(l.Lat, 'f', 6, 64),
		strconv.FormatFloat(l.Lon, 'f', 6, 64),
		method, place)
}

// ParseLocation accepts "lat,lon", "lat,lon,method" and
// "lat,lon,method,place". The place keeps any further commas.
func ParseLocation(payload string) (Location, error) {
	parts := strings.SplitN(strings.TrimSpace(payload), ",", 4)
	if len(parts) < 2 {
		return Location{}, ErrShortPayload
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("parse longitude: %w", err)
	}

	loc := Location{
		Lat:    lat,
		Lon:    lon,
		Method: MethodUnknown,
		Place:  UnknownPlace,
	}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		loc.Method = Method(strings.TrimSpace(parts[2]))
	}
	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		loc.Place = strings.TrimSpace(parts[3])
	}
	return loc, nil
}

// TimeAgo renders the coarse age used by the dashboard.
func TimeAgo(from, now time.Time) string {
	seconds := int(now.Sub(from).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d seconds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d minutes ago", seconds/60)
	default:
		return fmt.Sprintf("%d hours ago", seconds/3600)
	}
}
