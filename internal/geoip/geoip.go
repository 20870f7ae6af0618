package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"orin/pkg/telemetry"
)

var ErrLookup = errors.New("geoip: lookup failed")

const (
	DefaultIPifyURL   = "https://api.ipify.org"
	DefaultIPAPIURL   = "http://ip-api.com/json"
	DefaultIpstackURL = "http://api.ipstack.com/check"
)

// Client resolves the device's approximate location from its public IP.
type Client struct {
	HTTP       *http.Client
	IPifyURL   string
	IPAPIURL   string
	IpstackURL string
	IpstackKey string

	now func() time.Time
}

func New(httpClient *http.Client, ipstackKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		HTTP:       httpClient,
		IPifyURL:   DefaultIPifyURL,
		IPAPIURL:   DefaultIPAPIURL,
		IpstackURL: DefaultIpstackURL,
		IpstackKey: ipstackKey,
		now:        time.Now,
	}
}

// Locate uses ipstack when a key is configured, ipify + ip-api otherwise.
func (c *Client) Locate(ctx context.Context) (telemetry.Location, error) {
	if c.IpstackKey != "" {
		return c.Ipstack(ctx, c.IpstackKey)
	}
	ip, err := c.PublicIP(ctx)
	if err != nil {
		return telemetry.Location{}, err
	}
	return c.Lookup(ctx, ip)
}

func (c *Client) PublicIP(ctx context.Context) (string, error) {
	var out struct {
		IP string `json:"ip"`
	}
	if err := c.getJSON(ctx, c.IPifyURL+"?format=json", &out); err != nil {
		return "", fmt.Errorf("public ip: %w", err)
	}
	if out.IP == "" {
		return "", fmt.Errorf("public ip: %w: empty address", ErrLookup)
	}
	return out.IP, nil
}

func (c *Client) Lookup(ctx context.Context, ip string) (telemetry.Location, error) {
	var out struct {
		Status     string  `json:"status"`
		Message    string  `json:"message"`
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
		City       string  `json:"city"`
		RegionName string  `json:"regionName"`
		Country    string  `json:"country"`
	}
	if err := c.getJSON(ctx, c.IPAPIURL+"/"+url.PathEscape(ip), &out); err != nil {
		return telemetry.Location{}, fmt.Errorf("ip-api: %w", err)
	}
	if out.Status != "" && out.Status != "success" {
		return telemetry.Location{}, fmt.Errorf("ip-api: %w: %s", ErrLookup, out.Message)
	}
	return c.location(out.Lat, out.Lon, out.City, out.RegionName, out.Country), nil
}

func (c *Client) Ipstack(ctx context.Context, key string) (telemetry.Location, error) {
	var out struct {
		Success   *bool   `json:"success"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		City      string  `json:"city"`
		Region    string  `json:"region_name"`
		Country   string  `json:"country_name"`
		Error     struct {
			Info string `json:"info"`
		} `json:"error"`
	}
	if err := c.getJSON(ctx, c.IpstackURL+"?access_key="+url.QueryEscape(key), &out); err != nil {
		return telemetry.Location{}, fmt.Errorf("ipstack: %w", err)
	}
	if out.Success != nil && !*out.Success {
		return telemetry.Location{}, fmt.Errorf("ipstack: %w: %s", ErrLookup, out.Error.Info)
	}
	return c.location(out.Latitude, out.Longitude, out.City, out.Region, out.Country), nil
}

func (c *Client) location(lat, lon float64, parts ...string) telemetry.Location {
	var place []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			place = append(place, p)
		}
	}
	l := telemetry.Location{
		Lat:       lat,
		Lon:       lon,
		Method:    telemetry.MethodIP,
		Place:     strings.Join(place, ", "),
		UpdatedAt: c.now(),
	}
	if l.Place == "" {
		l.Place = telemetry.UnknownPlace
	}
	return l
}

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", ErrLookup, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
