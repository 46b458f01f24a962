package controllers

import (
	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartController manages the per-user shopping cart. One row per
// (user, product), quantities merged on repeat adds.
type CartController struct{}

// GetCart returns the user's cart with line and grand totals
func (cc *CartController) GetCart(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var items []models.CartItem
	if err := database.DB.Preload("Product").
		Where("user_id = ?", user.ID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch cart"})
	}

	total := 0
	lines := make([]fiber.Map, 0, len(items))
	for _, item := range items {
		lineTotal := item.Product.Price * item.Quantity
		total += lineTotal
		lines = append(lines, fiber.Map{
			"id":         item.ID,
			"product":    item.Product,
			"quantity":   item.Quantity,
			"line_total": lineTotal,
		})
	}

	return c.JSON(fiber.Map{
		"items": lines,
		"total": total,
	})
}

// AddToCart inserts or merges a cart line
func (cc *CartController) AddToCart(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var req struct {
		ProductID uint `json:"product_id" validate:"required"`
		Quantity  int  `json:"quantity" validate:"required,gt=0"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var product models.Product
	if err := database.DB.Where("id = ? AND active = ?", req.ProductID, true).
		First(&product).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}

	var item models.CartItem
	err = database.DB.Where("user_id = ? AND product_id = ?", user.ID, req.ProductID).
		First(&item).Error
	switch {
	case err == nil:
		newQty := item.Quantity + req.Quantity
		if product.Stock < newQty {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Not enough stock"})
		}
		if err := database.DB.Model(&item).Update("quantity", newQty).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update cart"})
		}
	case err == gorm.ErrRecordNotFound:
		if product.Stock < req.Quantity {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Not enough stock"})
		}
		item = models.CartItem{UserID: user.ID, ProductID: req.ProductID, Quantity: req.Quantity}
		// unique (user, product) index guards concurrent first adds
		if err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add to cart"})
		}
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add to cart"})
	}

	middleware.LogActivity(c, "UPDATE", "cart", item.ID, fiber.Map{
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})

	return c.JSON(fiber.Map{"message": "Added to cart"})
}

// UpdateCartItem changes a line's quantity
func (cc *CartController) UpdateCartItem(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid cart item ID"})
	}

	var req struct {
		Quantity int `json:"quantity" validate:"required,gt=0"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var item models.CartItem
	if err := database.DB.Preload("Product").
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&item).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Cart item not found"})
	}

	if item.Product.Stock < req.Quantity {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Not enough stock"})
	}

	if err := database.DB.Model(&item).Update("quantity", req.Quantity).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update cart"})
	}

	return c.JSON(fiber.Map{"message": "Cart updated"})
}

// RemoveCartItem deletes one line from the user's cart
func (cc *CartController) RemoveCartItem(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid cart item ID"})
	}

	result := database.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.CartItem{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove cart item"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Cart item not found"})
	}

	return c.JSON(fiber.Map{"message": "Item removed"})
}

// ClearCart empties the user's cart
func (cc *CartController) ClearCart(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	if err := database.DB.Where("user_id = ?", user.ID).Delete(&models.CartItem{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to clear cart"})
	}

	return c.JSON(fiber.Map{"message": "Cart cleared"})
}
