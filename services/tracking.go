package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rawdahkids_go/config"
	"rawdahkids_go/database"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
)

// VehicleLocation is the latest reported position of a bus. Locations live
// only in Redis with a short TTL; a vehicle with no recent ping simply has
// no location.
type VehicleLocation struct {
	VehicleID  uint      `json:"vehicle_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      float64   `json:"speed,omitempty"`
	Heading    float64   `json:"heading,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
}

// TrackingService stores and serves vehicle location pings.
type TrackingService struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewTrackingService() *TrackingService {
	return &TrackingService{
		redis: database.GetRedisClient(),
		ttl:   config.AppConfig.VehicleLocationTTL,
	}
}

func vehicleLocationKey(vehicleID uint) string {
	return fmt.Sprintf("vehicle:location:%d", vehicleID)
}

// ReportLocation stores the latest ping for a vehicle.
func (s *TrackingService) ReportLocation(loc VehicleLocation) error {
	if s.redis == nil {
		return workflowErr(fiber.StatusServiceUnavailable, "location tracking is unavailable")
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return workflowErr(fiber.StatusBadRequest, "invalid coordinates")
	}
	loc.ReportedAt = time.Now()

	data, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return s.redis.Set(context.Background(), vehicleLocationKey(loc.VehicleID), data, s.ttl).Err()
}

// LatestLocation returns the most recent ping, or nil when the vehicle has
// not reported within the TTL window.
func (s *TrackingService) LatestLocation(vehicleID uint) (*VehicleLocation, error) {
	if s.redis == nil {
		return nil, workflowErr(fiber.StatusServiceUnavailable, "location tracking is unavailable")
	}

	data, err := s.redis.Get(context.Background(), vehicleLocationKey(vehicleID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var loc VehicleLocation
	if err := json.Unmarshal([]byte(data), &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}
