package services

import (
	"errors"

	"rawdahkids_go/database"
	"rawdahkids_go/models"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderService places orders from the user's cart. The order row, its items,
// the simulated payment record and the cart clear are committed in one
// database transaction, so a failure at any step rolls everything back.
type OrderService struct {
	db *gorm.DB
}

func NewOrderService() *OrderService {
	return &OrderService{db: database.GetDB()}
}

// NewOrderServiceWithDB is used by tests and callers holding a transaction.
func NewOrderServiceWithDB(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// CheckoutInput carries the simulated payment details.
type CheckoutInput struct {
	PaymentMethod    string `json:"payment_method" validate:"required,oneof=transfer cash card"`
	PaymentReference string `json:"payment_reference"`
	Note             string `json:"note"`
}

// Checkout converts the user's cart into an order.
func (s *OrderService) Checkout(user *models.User, in CheckoutInput) (*models.Order, error) {
	var order models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cartItems []models.CartItem
		if err := tx.Preload("Product").Where("user_id = ?", user.ID).Find(&cartItems).Error; err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return workflowErr(fiber.StatusBadRequest, "cart is empty")
		}

		total := 0
		items := make([]models.OrderItem, 0, len(cartItems))
		for _, ci := range cartItems {
			// lock stock row while decrementing
			var product models.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, ci.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return workflowErr(fiber.StatusConflict, "product %d is no longer available", ci.ProductID)
				}
				return err
			}
			if !product.Active {
				return workflowErr(fiber.StatusConflict, "product %q is no longer available", product.Name)
			}
			if product.Stock < ci.Quantity {
				return workflowErr(fiber.StatusConflict, "insufficient stock for %q (%d left)", product.Name, product.Stock)
			}
			if err := tx.Model(&product).Update("stock", gorm.Expr("stock - ?", ci.Quantity)).Error; err != nil {
				return err
			}

			total += product.Price * ci.Quantity
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  ci.Quantity,
				UnitPrice: product.Price,
			})
		}

		order = models.Order{
			OrderNumber: utils.GenerateOrderNumber(),
			UserID:      user.ID,
			Total:       total,
			Status:      models.OrderPending,
			Note:        in.Note,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		payment := models.Payment{
			OrderID:   order.ID,
			Amount:    total,
			Method:    in.PaymentMethod,
			Reference: in.PaymentReference,
			Status:    "recorded",
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ?", user.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Items").Preload("Items.Product").Preload("Payment").First(&order, order.ID)
	return &order, nil
}

// UpdateStatus changes an order's fulfilment status (admin operation).
func (s *OrderService) UpdateStatus(orderID uint, status string) (*models.Order, error) {
	switch status {
	case models.OrderPending, models.OrderPaid, models.OrderShipped, models.OrderDelivered, models.OrderCancelled:
	default:
		return nil, workflowErr(fiber.StatusBadRequest, "invalid order status %q", status)
	}

	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflowErr(fiber.StatusNotFound, "order not found")
		}
		return nil, err
	}

	if err := s.db.Model(&order).Update("status", status).Error; err != nil {
		return nil, err
	}

	s.db.Preload("Items").Preload("Items.Product").Preload("Payment").First(&order, order.ID)
	return &order, nil
}
