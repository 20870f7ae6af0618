package gps

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Fix struct {
	Lat, Lon float64 // signed decimal degrees
	Alt      float64 // meters
	Speed    float64 // knots
	Course   float64
	Time     time.Time // UTC, zero when absent
}

// ParseCGPSInfo parses an AT+CGPSINFO response:
//
//	+CGPSINFO: 3113.343286,N,12121.234064,E,250311,072809.3,44.1,0.0,0
//
// Latitude is ddmm.mmmm and longitude dddmm.mmmm.
func ParseCGPSInfo(resp string) (Fix, error) {
	i := strings.Index(resp, "+CGPSINFO:")
	if i < 0 {
		return Fix{}, fmt.Errorf("gps: no CGPSINFO in %q", strings.TrimSpace(resp))
	}
	line := resp[i+len("+CGPSINFO:"):]
	if j := strings.IndexAny(line, "\r\n"); j >= 0 {
		line = line[:j]
	}

	f := strings.Split(strings.TrimSpace(line), ",")
	if len(f) < 4 || f[0] == "" || f[2] == "" {
		return Fix{}, ErrNoFix
	}

	lat, err := nmeaDegrees(f[0], f[1], 'S')
	if err != nil {
		return Fix{}, fmt.Errorf("gps: latitude: %w", err)
	}
	lon, err := nmeaDegrees(f[2], f[3], 'W')
	if err != nil {
		return Fix{}, fmt.Errorf("gps: longitude: %w", err)
	}

	fix := Fix{Lat: lat, Lon: lon}
	if len(f) > 5 && f[4] != "" && f[5] != "" {
		if t, err := time.Parse("020106150405", f[4]+strings.SplitN(f[5], ".", 2)[0]); err == nil {
			fix.Time = t
		}
	}
	if len(f) > 6 {
		fix.Alt, _ = strconv.ParseFloat(f[6], 64)
	}
	if len(f) > 7 {
		fix.Speed, _ = strconv.ParseFloat(f[7], 64)
	}
	if len(f) > 8 {
		fix.Course, _ = strconv.ParseFloat(f[8], 64)
	}
	return fix, nil
}

// nmeaDegrees converts (d)ddmm.mmmm and a hemisphere letter to decimal degrees.
func nmeaDegrees(v, hemi string, negative byte) (float64, error) {
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	deg := math.Floor(x / 100)
	d := deg + (x-deg*100)/60
	if len(hemi) > 0 && hemi[0] == negative {
		d = -d
	}
	return d, nil
}
