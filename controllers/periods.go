package controllers

import (
	"time"

	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PeriodController manages academic report periods. At most one period is
// active at a time; Activate enforces that inside a transaction.
type PeriodController struct{}

type PeriodRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	PeriodNumber int    `json:"period_number" validate:"required,gt=0"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

// GetPeriods lists all periods, newest first
func (pc *PeriodController) GetPeriods(c *fiber.Ctx) error {
	var periods []models.AcademicPeriod
	if err := database.DB.Order("created_at DESC").Find(&periods).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch periods"})
	}
	return c.JSON(fiber.Map{"periods": periods})
}

// GetActivePeriod returns the currently active period, if any
func (pc *PeriodController) GetActivePeriod(c *fiber.Ctx) error {
	var period models.AcademicPeriod
	if err := database.DB.Where("is_active = ?", true).First(&period).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active period"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch active period"})
	}
	return c.JSON(fiber.Map{"period": period})
}

// CreatePeriod creates a new inactive period (admin only)
func (pc *PeriodController) CreatePeriod(c *fiber.Ctx) error {
	var req PeriodRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	period := models.AcademicPeriod{
		Name:         req.Name,
		PeriodNumber: req.PeriodNumber,
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date, expected YYYY-MM-DD"})
		}
		period.StartDate = &start
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_date, expected YYYY-MM-DD"})
		}
		period.EndDate = &end
	}
	if period.StartDate != nil && period.EndDate != nil && period.EndDate.Before(*period.StartDate) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_date must not be before start_date"})
	}

	if err := database.DB.Create(&period).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create period"})
	}

	middleware.LogActivity(c, "CREATE", "periods", period.ID, fiber.Map{"name": period.Name})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Period created successfully", "period": period})
}

// UpdatePeriod edits a period's name and dates (admin only)
func (pc *PeriodController) UpdatePeriod(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid period ID"})
	}

	var period models.AcademicPeriod
	if err := database.DB.First(&period, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Period not found"})
	}

	var req PeriodRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.PeriodNumber > 0 {
		updates["period_number"] = req.PeriodNumber
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date, expected YYYY-MM-DD"})
		}
		updates["start_date"] = start
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_date, expected YYYY-MM-DD"})
		}
		updates["end_date"] = end
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&period).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update period"})
	}

	middleware.LogActivity(c, "UPDATE", "periods", period.ID, fiber.Map{"fields": updates})

	database.DB.First(&period, period.ID)
	return c.JSON(fiber.Map{"message": "Period updated successfully", "period": period})
}

// ActivatePeriod makes one period active and deactivates all others. The
// two updates run in one transaction so there is never more than one
// active period.
func (pc *PeriodController) ActivatePeriod(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid period ID"})
	}

	var period models.AcademicPeriod
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&period, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.AcademicPeriod{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&period).Update("is_active", true).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Period not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to activate period"})
	}

	middleware.LogActivity(c, "UPDATE", "periods", period.ID, fiber.Map{"action": "activate"})

	return c.JSON(fiber.Map{"message": "Period activated successfully", "period": period})
}

// DeletePeriod removes a period that has no reports yet (admin only)
func (pc *PeriodController) DeletePeriod(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid period ID"})
	}

	var period models.AcademicPeriod
	if err := database.DB.First(&period, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Period not found"})
	}

	var reportCount int64
	database.DB.Model(&models.PeriodicReport{}).Where("period_id = ?", period.ID).Count(&reportCount)
	if reportCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Period has reports and cannot be deleted"})
	}

	if err := database.DB.Delete(&period).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete period"})
	}

	middleware.LogActivity(c, "DELETE", "periods", period.ID, fiber.Map{"name": period.Name})

	return c.JSON(fiber.Map{"message": "Period deleted successfully"})
}
