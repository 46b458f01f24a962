package controllers

import (
	"encoding/json"
	"time"

	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	"rawdahkids_go/services"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
)

// VehicleController manages the bus fleet, routes, service logs and the
// Redis-backed live location feed.
type VehicleController struct{}

type VehicleRequest struct {
	PlateNumber string `json:"plate_number" validate:"required,max=20"`
	Model       string `json:"model" validate:"omitempty,max=100"`
	Capacity    int    `json:"capacity" validate:"omitempty,gt=0"`
	DriverName  string `json:"driver_name" validate:"omitempty,max=200"`
	DriverPhone string `json:"driver_phone" validate:"omitempty,max=20"`
}

// GetVehicles lists the fleet (staff only)
func (vc *VehicleController) GetVehicles(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Vehicle{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var vehicles []models.Vehicle
	if err := query.Order("plate_number ASC").Find(&vehicles).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch vehicles"})
	}
	return c.JSON(fiber.Map{"vehicles": vehicles})
}

// CreateVehicle adds a vehicle (admin only)
func (vc *VehicleController) CreateVehicle(c *fiber.Ctx) error {
	var req VehicleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var existing models.Vehicle
	if err := database.DB.Where("plate_number = ?", req.PlateNumber).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Plate number already registered"})
	}

	vehicle := models.Vehicle{
		PlateNumber: req.PlateNumber,
		Model:       req.Model,
		Capacity:    req.Capacity,
		DriverName:  req.DriverName,
		DriverPhone: req.DriverPhone,
		Status:      "available",
	}
	if err := database.DB.Create(&vehicle).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create vehicle"})
	}

	middleware.LogActivity(c, "CREATE", "vehicles", vehicle.ID, fiber.Map{"plate": vehicle.PlateNumber})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Vehicle created successfully", "vehicle": vehicle})
}

// UpdateVehicle edits a vehicle (admin only)
func (vc *VehicleController) UpdateVehicle(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid vehicle ID"})
	}

	var vehicle models.Vehicle
	if err := database.DB.First(&vehicle, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Vehicle not found"})
	}

	var req struct {
		VehicleRequest
		Status string `json:"status" validate:"omitempty,oneof=available on_route maintenance"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	updates := map[string]interface{}{}
	if req.PlateNumber != "" {
		updates["plate_number"] = req.PlateNumber
	}
	if req.Model != "" {
		updates["model"] = req.Model
	}
	if req.Capacity > 0 {
		updates["capacity"] = req.Capacity
	}
	if req.DriverName != "" {
		updates["driver_name"] = req.DriverName
	}
	if req.DriverPhone != "" {
		updates["driver_phone"] = req.DriverPhone
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&vehicle).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update vehicle"})
	}

	middleware.LogActivity(c, "UPDATE", "vehicles", vehicle.ID, fiber.Map{"fields": updates})

	database.DB.First(&vehicle, vehicle.ID)
	return c.JSON(fiber.Map{"message": "Vehicle updated successfully", "vehicle": vehicle})
}

// DeleteVehicle removes a vehicle (admin only)
func (vc *VehicleController) DeleteVehicle(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid vehicle ID"})
	}

	var vehicle models.Vehicle
	if err := database.DB.First(&vehicle, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Vehicle not found"})
	}

	if err := database.DB.Delete(&vehicle).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete vehicle"})
	}

	middleware.LogActivity(c, "DELETE", "vehicles", vehicle.ID, fiber.Map{"plate": vehicle.PlateNumber})

	return c.JSON(fiber.Map{"message": "Vehicle deleted successfully"})
}

// ReportLocation stores a live location ping for a vehicle (staff only)
func (vc *VehicleController) ReportLocation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid vehicle ID"})
	}

	var vehicle models.Vehicle
	if err := database.DB.First(&vehicle, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Vehicle not found"})
	}

	var loc services.VehicleLocation
	if err := c.BodyParser(&loc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	loc.VehicleID = vehicle.ID

	if err := services.NewTrackingService().ReportLocation(loc); err != nil {
		return respondWorkflowError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Location recorded"})
}

// GetLocation returns the latest ping for a vehicle, if recent enough.
// Parents use this to follow the bus.
func (vc *VehicleController) GetLocation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid vehicle ID"})
	}

	loc, err := services.NewTrackingService().LatestLocation(uint(id))
	if err != nil {
		return respondWorkflowError(c, err)
	}
	if loc == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No recent location for this vehicle"})
	}

	return c.JSON(fiber.Map{"location": loc})
}

// --- routes ---

type RouteRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	VehicleID   uint            `json:"vehicle_id"`
	Description string          `json:"description"`
	Stops       json.RawMessage `json:"stops"`
}

// GetRoutes lists service routes
func (vc *VehicleController) GetRoutes(c *fiber.Ctx) error {
	var routes []models.ServiceRoute
	if err := database.DB.Preload("Vehicle").Order("name ASC").Find(&routes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch routes"})
	}
	return c.JSON(fiber.Map{"routes": routes})
}

// CreateRoute adds a service route (admin only)
func (vc *VehicleController) CreateRoute(c *fiber.Ctx) error {
	var req RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.VehicleID != 0 {
		var vehicle models.Vehicle
		if err := database.DB.First(&vehicle, req.VehicleID).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Vehicle not found"})
		}
	}

	route := models.ServiceRoute{
		Name:        req.Name,
		VehicleID:   req.VehicleID,
		Description: req.Description,
		Stops:       models.JSON(req.Stops),
		Active:      true,
	}
	if err := database.DB.Create(&route).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create route"})
	}

	middleware.LogActivity(c, "CREATE", "routes", route.ID, fiber.Map{"name": route.Name})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Route created successfully", "route": route})
}

// UpdateRoute edits a service route (admin only)
func (vc *VehicleController) UpdateRoute(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid route ID"})
	}

	var route models.ServiceRoute
	if err := database.DB.First(&route, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Route not found"})
	}

	var req struct {
		RouteRequest
		Active *bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.VehicleID != 0 {
		var vehicle models.Vehicle
		if err := database.DB.First(&vehicle, req.VehicleID).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Vehicle not found"})
		}
		updates["vehicle_id"] = req.VehicleID
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if len(req.Stops) > 0 {
		updates["stops"] = models.JSON(req.Stops)
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&route).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update route"})
	}

	middleware.LogActivity(c, "UPDATE", "routes", route.ID, fiber.Map{"fields": updates})

	database.DB.Preload("Vehicle").First(&route, route.ID)
	return c.JSON(fiber.Map{"message": "Route updated successfully", "route": route})
}

// DeleteRoute removes a service route (admin only)
func (vc *VehicleController) DeleteRoute(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid route ID"})
	}

	var route models.ServiceRoute
	if err := database.DB.First(&route, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Route not found"})
	}

	if err := database.DB.Delete(&route).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete route"})
	}

	middleware.LogActivity(c, "DELETE", "routes", route.ID, fiber.Map{"name": route.Name})

	return c.JSON(fiber.Map{"message": "Route deleted successfully"})
}

// --- service logs ---

// GetServiceLogs lists run records for a route
func (vc *VehicleController) GetServiceLogs(c *fiber.Ctx) error {
	query := database.DB.Model(&models.ServiceLog{}).Preload("Route").Preload("Vehicle")

	if routeID := c.QueryInt("route_id", 0); routeID > 0 {
		query = query.Where("route_id = ?", routeID)
	}
	if vehicleID := c.QueryInt("vehicle_id", 0); vehicleID > 0 {
		query = query.Where("vehicle_id = ?", vehicleID)
	}

	var logs []models.ServiceLog
	if err := query.Order("created_at DESC").Limit(100).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch service logs"})
	}
	return c.JSON(fiber.Map{"service_logs": logs})
}

// CreateServiceLog records one completed route run (staff only)
func (vc *VehicleController) CreateServiceLog(c *fiber.Ctx) error {
	var req struct {
		RouteID    uint   `json:"route_id" validate:"required"`
		StartedAt  string `json:"started_at"`
		FinishedAt string `json:"finished_at"`
		Notes      string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var route models.ServiceRoute
	if err := database.DB.First(&route, req.RouteID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Route not found"})
	}

	serviceLog := models.ServiceLog{
		RouteID:   route.ID,
		VehicleID: route.VehicleID,
		Notes:     req.Notes,
	}
	if req.StartedAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartedAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid started_at, expected RFC3339"})
		}
		serviceLog.StartedAt = &t
	}
	if req.FinishedAt != "" {
		t, err := time.Parse(time.RFC3339, req.FinishedAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid finished_at, expected RFC3339"})
		}
		serviceLog.FinishedAt = &t
	}

	if err := database.DB.Create(&serviceLog).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create service log"})
	}

	middleware.LogActivity(c, "CREATE", "service_logs", serviceLog.ID, fiber.Map{"route_id": route.ID})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Service log recorded", "service_log": serviceLog})
}
