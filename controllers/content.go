package controllers

import (
	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	"rawdahkids_go/services"
	"rawdahkids_go/storage"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
)

// ContentController manages the public About page sections and the mirrored
// Instagram feed settings.
type ContentController struct{}

type AboutSectionRequest struct {
	Title     string `json:"title" validate:"required,max=255"`
	Body      string `json:"body"`
	SortOrder int    `json:"sort_order"`
}

// GetAboutSections returns published sections in display order. Admins may
// pass include_unpublished=true to see drafts.
func (cc *ContentController) GetAboutSections(c *fiber.Ctx) error {
	query := database.DB.Model(&models.AboutSection{})

	includeUnpublished := c.Query("include_unpublished") == "true"
	if includeUnpublished {
		user, err := middleware.GetCurrentUser(c)
		if err != nil || user.Role != models.RoleAdmin {
			includeUnpublished = false
		}
	}
	if !includeUnpublished {
		query = query.Where("published = ?", true)
	}

	var sections []models.AboutSection
	if err := query.Order("sort_order ASC, id ASC").Find(&sections).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch sections"})
	}
	return c.JSON(fiber.Map{"sections": sections})
}

// CreateAboutSection adds a section (admin only)
func (cc *ContentController) CreateAboutSection(c *fiber.Ctx) error {
	var req AboutSectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	section := models.AboutSection{
		Title:     req.Title,
		Body:      req.Body,
		SortOrder: req.SortOrder,
		Published: true,
	}
	if section.SortOrder == 0 {
		section.SortOrder = 1
	}
	if err := database.DB.Create(&section).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create section"})
	}

	middleware.LogActivity(c, "CREATE", "about_sections", section.ID, fiber.Map{"title": section.Title})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Section created successfully", "section": section})
}

// UpdateAboutSection edits a section (admin only)
func (cc *ContentController) UpdateAboutSection(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid section ID"})
	}

	var section models.AboutSection
	if err := database.DB.First(&section, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Section not found"})
	}

	var req struct {
		Title     string `json:"title" validate:"omitempty,max=255"`
		Body      string `json:"body"`
		SortOrder int    `json:"sort_order"`
		Published *bool  `json:"published"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Body != "" {
		updates["body"] = req.Body
	}
	if req.SortOrder > 0 {
		updates["sort_order"] = req.SortOrder
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&section).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update section"})
	}

	middleware.LogActivity(c, "UPDATE", "about_sections", section.ID, fiber.Map{"fields": updates})

	database.DB.First(&section, section.ID)
	return c.JSON(fiber.Map{"message": "Section updated successfully", "section": section})
}

// DeleteAboutSection removes a section (admin only)
func (cc *ContentController) DeleteAboutSection(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid section ID"})
	}

	var section models.AboutSection
	if err := database.DB.First(&section, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Section not found"})
	}

	if err := database.DB.Delete(&section).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete section"})
	}

	middleware.LogActivity(c, "DELETE", "about_sections", section.ID, fiber.Map{"title": section.Title})

	return c.JSON(fiber.Map{"message": "Section deleted successfully"})
}

// UploadSectionImage stores a section image in S3 (admin only)
func (cc *ContentController) UploadSectionImage(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid section ID"})
	}

	var section models.AboutSection
	if err := database.DB.First(&section, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Section not found"})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No image file provided"})
	}

	storageService, err := storage.NewStorageService()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Storage service unavailable"})
	}

	url, err := storageService.UploadFile(file, "about", section.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload image"})
	}

	if section.Image != "" {
		storageService.DeleteFile(section.Image)
	}

	if err := database.DB.Model(&section).Update("image", url).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save image"})
	}

	middleware.LogActivity(c, "UPDATE", "about_sections", section.ID, fiber.Map{"action": "image_upload"})

	return c.JSON(fiber.Map{"message": "Image uploaded successfully", "image": url})
}

// --- instagram ---

// GetInstagramFeed serves the mirrored feed. Public; the access token never
// leaves the backend.
func (cc *ContentController) GetInstagramFeed(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 12)

	posts, err := services.NewInstagramService().GetFeed(limit)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Instagram feed unavailable"})
	}

	return c.JSON(fiber.Map{"posts": posts})
}

// GetInstagramSettings returns the feed settings without the token (admin only)
func (cc *ContentController) GetInstagramSettings(c *fiber.Ctx) error {
	var settings models.InstagramSettings
	if err := database.DB.First(&settings).Error; err != nil {
		return c.JSON(fiber.Map{"settings": models.InstagramSettings{}})
	}
	return c.JSON(fiber.Map{"settings": settings})
}

// UpdateInstagramToken stores a new access token (admin only)
func (cc *ContentController) UpdateInstagramToken(c *fiber.Ctx) error {
	var req struct {
		AccessToken string `json:"access_token" validate:"required"`
		AccountName string `json:"account_name" validate:"omitempty,max=100"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := services.NewInstagramService().UpdateToken(req.AccessToken, req.AccountName); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save token"})
	}

	middleware.LogActivity(c, "UPDATE", "instagram_settings", 0, fiber.Map{"account": req.AccountName})

	return c.JSON(fiber.Map{"message": "Token updated successfully"})
}

// TestInstagramToken verifies the stored token against the Instagram API
// (admin only)
func (cc *ContentController) TestInstagramToken(c *fiber.Ctx) error {
	settings, err := services.NewInstagramService().TestToken()
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	middleware.LogActivity(c, "UPDATE", "instagram_settings", 0, fiber.Map{"action": "token_test"})

	return c.JSON(fiber.Map{"message": "Token is valid", "settings": settings})
}

// RefreshInstagramFeed forces a cache refresh (admin only)
func (cc *ContentController) RefreshInstagramFeed(c *fiber.Ctx) error {
	posts, err := services.NewInstagramService().RefreshFeed(12)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	middleware.LogActivity(c, "UPDATE", "instagram_settings", 0, fiber.Map{"action": "feed_refresh"})

	return c.JSON(fiber.Map{"message": "Feed refreshed", "posts": posts})
}
