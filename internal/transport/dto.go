package transport

import "github.com/shopspring/decimal"

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateOrderItem struct {
	ProductID uint  `json:"product_id" validate:"required"`
	VariantID *uint `json:"variant_id,omitempty"`
	Quantity  uint  `json:"quantity"   validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items"            validate:"required,min=1,dive"`
	ShippingName    string            `json:"shipping_name"    validate:"required"`
	ShippingAddress string            `json:"shipping_address" validate:"required"`
	ShippingPhone   string            `json:"shipping_phone"`
}

type CreateOrderResponse struct {
	OrderID      uint   `json:"order_id"`
	GuestKey     string `json:"guest_key,omitempty"`
	PaymentToken string `json:"payment_token"`
	RedirectURL  string `json:"redirect_url"`
}

type CreateVariantRequest struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price"`
	Stock uint            `json:"stock"`
}

type CreateProductRequest struct {
	Name        string                 `json:"name" validate:"required"`
	Description string                 `json:"description"`
	Price       decimal.Decimal        `json:"price"`
	Stock       uint                   `json:"stock"`
	Variants    []CreateVariantRequest `json:"variants,omitempty" validate:"dive"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *uint            `json:"stock,omitempty"`
}

type CreateUserRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"     validate:"required,oneof=admin user"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

type ReduceStockRequest struct {
	ProductID uint  `json:"product_id" validate:"required"`
	VariantID *uint `json:"variant_id,omitempty"`
	Quantity  uint  `json:"quantity"   validate:"required,gt=0"`
}

type StockResponse struct {
	ProductID uint  `json:"product_id"`
	VariantID *uint `json:"variant_id,omitempty"`
	Stock     uint  `json:"stock"`
}
