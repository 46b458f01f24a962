package controllers

import (
	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	"rawdahkids_go/services"
	notifservice "rawdahkids_go/services/notifications"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
)

// OrderController places and tracks shop orders. Checkout itself is
// transactional inside services.OrderService.
type OrderController struct{}

// Checkout converts the cart into an order with a simulated payment record
func (oc *OrderController) Checkout(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var in services.CheckoutInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	order, err := services.NewOrderService().Checkout(user, in)
	if err != nil {
		return respondWorkflowError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "orders", order.ID, fiber.Map{
		"order_number": order.OrderNumber,
		"total":        order.Total,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetMyOrders lists the logged-in user's orders
func (oc *OrderController) GetMyOrders(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var orders []models.Order
	if err := database.DB.Preload("Items").Preload("Items.Product").Preload("Payment").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch orders"})
	}

	return c.JSON(fiber.Map{"orders": orders})
}

// GetOrders lists all orders with status filter (admin only)
func (oc *OrderController) GetOrders(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Order{}).
		Preload("User").Preload("Items").Preload("Items.Product").Preload("Payment")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
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

	var orders []models.Order
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch orders"})
	}

	return c.JSON(fiber.Map{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// GetOrder returns one order. Users see only their own; admins see any.
func (oc *OrderController) GetOrder(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var order models.Order
	if err := database.DB.Preload("Items").Preload("Items.Product").Preload("Payment").
		First(&order, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}

	if user.Role != models.RoleAdmin && order.UserID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
	}

	return c.JSON(fiber.Map{"order": order})
}

// UpdateOrderStatus moves an order through fulfilment (admin only)
func (oc *OrderController) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	order, err := services.NewOrderService().UpdateStatus(uint(id), req.Status)
	if err != nil {
		return respondWorkflowError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "orders", order.ID, fiber.Map{"status": req.Status})

	notif := notifservice.NewService()
	notif.EnqueueOrCreate([]uint{order.UserID}, notifservice.QueuedWithData(
		"Order update",
		"Order "+order.OrderNumber+" is now "+order.Status+".",
		"info",
		fiber.Map{"order_id": order.ID},
		"normal",
	))

	return c.JSON(fiber.Map{"message": "Order status updated", "order": order})
}
