package controllers

import (
	"time"

	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	"rawdahkids_go/storage"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
)

// ChildController manages enrolled child records. Staff see all children;
// parents only see their own.
type ChildController struct{}

// ChildRequest is the create/update body for child records
type ChildRequest struct {
	FirstName        string `json:"first_name" validate:"required,max=100"`
	LastName         string `json:"last_name" validate:"required,max=100"`
	Nickname         string `json:"nickname" validate:"omitempty,max=100"`
	DateOfBirth      string `json:"date_of_birth"`
	Gender           string `json:"gender" validate:"omitempty,oneof=male female"`
	ClassName        string `json:"class_name" validate:"omitempty,max=100"`
	ParentID         uint   `json:"parent_id"`
	Allergies        string `json:"allergies"`
	MedicalNotes     string `json:"medical_notes"`
	EmergencyContact string `json:"emergency_contact" validate:"omitempty,max=200"`
	EmergencyPhone   string `json:"emergency_phone" validate:"omitempty,max=20"`
}

// GetChildren lists children with optional class and search filters (staff only)
func (cc *ChildController) GetChildren(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Child{}).Preload("Parent")

	if className := c.Query("class_name"); className != "" {
		query = query.Where("class_name = ?", className)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}
	if search := c.Query("search"); search != "" {
		like := "%" + utils.SanitizeString(search) + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR nickname LIKE ?", like, like, like)
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	query.Count(&total)

	var children []models.Child
	if err := query.Order("class_name ASC, first_name ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&children).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch children"})
	}

	return c.JSON(fiber.Map{
		"children": children,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// GetMyChildren lists the children linked to the logged-in parent
func (cc *ChildController) GetMyChildren(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var children []models.Child
	if err := database.DB.Where("parent_id = ?", user.ID).
		Order("first_name ASC").Find(&children).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch children"})
	}

	return c.JSON(fiber.Map{"children": children})
}

// GetChild returns one child. Parents can only access their own children.
func (cc *ChildController) GetChild(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid child ID"})
	}

	var child models.Child
	if err := database.DB.Preload("Parent").First(&child, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Child not found"})
	}

	if !user.IsStaff() && child.ParentID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
	}

	return c.JSON(fiber.Map{"child": child})
}

// CreateChild enrolls a new child (admin only)
func (cc *ChildController) CreateChild(c *fiber.Ctx) error {
	var req ChildRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	child := models.Child{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Nickname:         req.Nickname,
		Gender:           req.Gender,
		ClassName:        req.ClassName,
		ParentID:         req.ParentID,
		Allergies:        req.Allergies,
		MedicalNotes:     req.MedicalNotes,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
		Active:           true,
	}

	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date_of_birth, expected YYYY-MM-DD"})
		}
		child.DateOfBirth = &dob
	}

	if req.ParentID != 0 {
		var parent models.User
		if err := database.DB.Where("id = ? AND role = ?", req.ParentID, models.RoleParent).
			First(&parent).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Parent account not found"})
		}
	}

	if req.ClassName != "" {
		var count int64
		database.DB.Model(&models.ClassGroup{}).Where("name = ?", req.ClassName).Count(&count)
		if count == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Class group does not exist"})
		}
	}

	now := time.Now()
	child.EnrolledAt = &now

	if err := database.DB.Create(&child).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create child record"})
	}

	middleware.LogActivity(c, "CREATE", "children", child.ID, fiber.Map{
		"name":  child.FirstName + " " + child.LastName,
		"class": child.ClassName,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Child enrolled successfully",
		"child":   child,
	})
}

// UpdateChild edits a child record (admin only)
func (cc *ChildController) UpdateChild(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid child ID"})
	}

	var child models.Child
	if err := database.DB.First(&child, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Child not found"})
	}

	var req struct {
		ChildRequest
		Active *bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}
	if req.Nickname != "" {
		updates["nickname"] = req.Nickname
	}
	if req.Gender != "" {
		updates["gender"] = req.Gender
	}
	if req.ClassName != "" {
		var count int64
		database.DB.Model(&models.ClassGroup{}).Where("name = ?", req.ClassName).Count(&count)
		if count == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Class group does not exist"})
		}
		updates["class_name"] = req.ClassName
	}
	if req.ParentID != 0 {
		var parent models.User
		if err := database.DB.Where("id = ? AND role = ?", req.ParentID, models.RoleParent).
			First(&parent).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Parent account not found"})
		}
		updates["parent_id"] = req.ParentID
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date_of_birth, expected YYYY-MM-DD"})
		}
		updates["date_of_birth"] = dob
	}
	if req.Allergies != "" {
		updates["allergies"] = req.Allergies
	}
	if req.MedicalNotes != "" {
		updates["medical_notes"] = req.MedicalNotes
	}
	if req.EmergencyContact != "" {
		updates["emergency_contact"] = req.EmergencyContact
	}
	if req.EmergencyPhone != "" {
		updates["emergency_phone"] = req.EmergencyPhone
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&child).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update child record"})
	}

	middleware.LogActivity(c, "UPDATE", "children", child.ID, fiber.Map{"fields": updates})

	database.DB.Preload("Parent").First(&child, child.ID)
	return c.JSON(fiber.Map{"message": "Child updated successfully", "child": child})
}

// DeleteChild soft deletes a child record (admin only)
func (cc *ChildController) DeleteChild(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid child ID"})
	}

	var child models.Child
	if err := database.DB.First(&child, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Child not found"})
	}

	if err := database.DB.Delete(&child).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete child record"})
	}

	middleware.LogActivity(c, "DELETE", "children", child.ID, fiber.Map{
		"name": child.FirstName + " " + child.LastName,
	})

	return c.JSON(fiber.Map{"message": "Child deleted successfully"})
}

// UploadChildPhoto stores a child's photo in S3 (staff only)
func (cc *ChildController) UploadChildPhoto(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid child ID"})
	}

	var child models.Child
	if err := database.DB.First(&child, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Child not found"})
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No photo file provided"})
	}

	storageService, err := storage.NewStorageService()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Storage service unavailable"})
	}

	url, err := storageService.UploadFile(file, "children", child.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload photo"})
	}

	if child.Photo != "" {
		storageService.DeleteFile(child.Photo)
	}

	if err := database.DB.Model(&child).Update("photo", url).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save photo"})
	}

	middleware.LogActivity(c, "UPDATE", "children", child.ID, fiber.Map{"action": "photo_upload"})

	return c.JSON(fiber.Map{"message": "Photo uploaded successfully", "photo": url})
}
