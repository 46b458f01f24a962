package controllers

import (
	"time"

	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	notifservice "rawdahkids_go/services/notifications"
	"rawdahkids_go/storage"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
)

// UserController handles account administration: listing, approval and
// lifecycle of staff and parent accounts.
type UserController struct{}

// GetUsers returns users filtered by role and status (admin only)
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	query := database.DB.Model(&models.User{})

	if role := c.Query("role"); role != "" {
		if !utils.IsValidRole(role) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid role"})
		}
		query = query.Where("role = ?", role)
	}
	if status := c.Query("status"); status != "" {
		if !utils.IsValidAccountStatus(status) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
		}
		query = query.Where("status = ?", status)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + utils.SanitizeString(search) + "%"
		query = query.Where("username LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR email LIKE ?",
			like, like, like, like)
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

	var users []models.User
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch users"})
	}

	return c.JSON(fiber.Map{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetPendingUsers lists accounts awaiting approval (admin only)
func (uc *UserController) GetPendingUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := database.DB.Where("status = ?", models.AccountPending).
		Order("created_at ASC").Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch pending users"})
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetUser returns a single user
func (uc *UserController) GetUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var user models.User
	if err := database.DB.Preload("Children").Preload("ApprovedBy").First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(fiber.Map{"user": user})
}

// ApproveUser activates a pending account (admin only)
func (uc *UserController) ApproveUser(c *fiber.Ctx) error {
	admin, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if user.Status != models.AccountPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Account is not pending approval"})
	}

	now := time.Now()
	if err := database.DB.Model(&user).Updates(map[string]interface{}{
		"status":         models.AccountActive,
		"approved_by_id": admin.ID,
		"approved_at":    now,
	}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to approve user"})
	}

	middleware.LogActivity(c, "UPDATE", "users", user.ID, fiber.Map{
		"action":      "approve",
		"approved_by": admin.Username,
	})

	notif := notifservice.NewService()
	if err := notif.EnqueueOrCreate([]uint{user.ID}, notifservice.Queued(
		"Account approved",
		"Your account has been approved. You can now log in.",
		"success", "normal", "line",
	)); err != nil {
		// approval already committed; notification failure is not fatal
		middleware.LogActivity(c, "UPDATE", "notifications", user.ID, fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "User approved successfully"})
}

// RejectUser declines a pending account (admin only)
func (uc *UserController) RejectUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if user.Status != models.AccountPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Account is not pending approval"})
	}

	if err := database.DB.Model(&user).Update("status", models.AccountInactive).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reject user"})
	}

	middleware.LogActivity(c, "UPDATE", "users", user.ID, fiber.Map{"action": "reject"})

	return c.JSON(fiber.Map{"message": "User rejected"})
}

// UpdateUser edits account fields (admin only)
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	var req struct {
		Email     string `json:"email" validate:"omitempty,email"`
		Phone     string `json:"phone"`
		LineID    string `json:"line_id"`
		FirstName string `json:"first_name" validate:"omitempty,max=100"`
		LastName  string `json:"last_name" validate:"omitempty,max=100"`
		Role      string `json:"role"`
		Status    string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	updates := map[string]interface{}{}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.LineID != "" {
		updates["line_id"] = req.LineID
	}
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}
	if req.Role != "" {
		if !utils.IsValidRole(req.Role) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid role"})
		}
		updates["role"] = req.Role
	}
	if req.Status != "" {
		if !utils.IsValidAccountStatus(req.Status) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
		}
		updates["status"] = req.Status
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user"})
	}

	middleware.LogActivity(c, "UPDATE", "users", user.ID, fiber.Map{"fields": updates})

	database.DB.First(&user, user.ID)
	return c.JSON(fiber.Map{"message": "User updated successfully", "user": user})
}

// DeleteUser soft deletes an account (admin only)
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	admin, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}
	if uint(id) == admin.ID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot delete your own account"})
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	if err := database.DB.Delete(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete user"})
	}

	middleware.LogActivity(c, "DELETE", "users", user.ID, fiber.Map{"username": user.Username})

	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// UploadAvatar stores a profile image in S3 and saves the URL
func (uc *UserController) UploadAvatar(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No avatar file provided"})
	}

	storageService, err := storage.NewStorageService()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Storage service unavailable"})
	}

	url, err := storageService.UploadFile(file, "avatars", user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	// best-effort cleanup of the previous avatar
	if user.Avatar != "" {
		storageService.DeleteFile(user.Avatar)
	}

	if err := database.DB.Model(user).Update("avatar", url).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save avatar"})
	}

	middleware.LogActivity(c, "UPDATE", "users", user.ID, fiber.Map{"action": "avatar_upload"})

	return c.JSON(fiber.Map{"message": "Avatar uploaded successfully", "avatar": url})
}
