package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if !strings.Contains(r.Email, "@") {
		return errors.New("valid email is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if r.Role != "" && !r.Role.Valid() {
		return fmt.Errorf("invalid role %q", r.Role)
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

type CreateReportRequest struct {
	EventType    EventType  `json:"event_type"`
	Description  string     `json:"description"`
	Longitude    float64    `json:"longitude"`
	Latitude     float64    `json:"latitude"`
	LocationName string     `json:"location_name,omitempty"`
	MediaURLs    []string   `json:"media_urls,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

func (r *CreateReportRequest) Validate() error {
	if !r.EventType.Valid() {
		return fmt.Errorf("invalid event type %q", r.EventType)
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("description is required")
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", r.Longitude)
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", r.Latitude)
	}
	return nil
}

// Validate fails fast on inverted or out-of-range bounds rather than
// silently clamping.
func (b *BoundingBox) Validate() error {
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return errors.New("bounding box exceeds coordinate range")
	}
	if b.MinLat > b.MaxLat {
		return errors.New("bounding box minLat exceeds maxLat")
	}
	if b.MinLon > b.MaxLon {
		return errors.New("bounding box minLon exceeds maxLon")
	}
	return nil
}
