package telemetry

import (
	"fmt"
	"strings"
)

type ObjectSighting struct {
	Label      string
	Confidence float32
	Distance   float64 // meters, 0 when the depth is unknown
}

func (s ObjectSighting) String() string {
	return fmt.Sprintf("%s at %.2f meters", s.Label, s.Distance)
}

// DetectionReport is published on TopicObjectResponse.
type DetectionReport struct {
	Objects []ObjectSighting
}

func (r DetectionReport) Payload() string {
	parts := make([]string, 0, len(r.Objects)+1)
	parts = append(parts, fmt.Sprintf("detected %d objects.", len(r.Objects)))
	for _, o := range r.Objects {
		parts = append(parts, o.String())
	}
	return strings.Join(parts, "; ")
}
