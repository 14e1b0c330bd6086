package handler

import (
	"github.com/shopspring/decimal"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

// errorResponse documents the error envelope rendered by the API error handler.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// --- Auth ---

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"     validate:"required"`
	Phone    string `json:"phone"`
	UserType string `json:"userType" validate:"required,oneof=buyer seller both"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// --- Users ---

// updateUserRequest is a partial update: absent fields keep their value.
type updateUserRequest struct {
	Email    *string `json:"email"    validate:"omitnil,email"`
	Name     *string `json:"name"     validate:"omitnil,min=1"`
	Phone    *string `json:"phone"`
	UserType *string `json:"userType" validate:"omitnil,oneof=buyer seller both"`
}

// --- Transactions ---

type createTransactionRequest struct {
	Title            string          `json:"title"            validate:"required,max=200"`
	Description      string          `json:"description"      validate:"required"`
	Price            decimal.Decimal `json:"price"            validate:"required,gt=0"`
	Status           string          `json:"status"           validate:"omitempty,oneof=pending_acceptance pending_payment payment_secured shipped delivered inspection_period completed disputed cancelled"`
	BuyerID          string          `json:"buyerId"`
	SellerID         string          `json:"sellerId"`
	BuyerName        string          `json:"buyerName"`
	SellerName       string          `json:"sellerName"`
	ExpectedDelivery domain.Date     `json:"expectedDelivery"`
	InspectionPeriod int             `json:"inspectionPeriod" validate:"gte=0"`
	DeliveryAddress  string          `json:"deliveryAddress"`
	Images           []string        `json:"images"           validate:"omitempty,dive,required"`
}

type updateStatusRequest struct {
	Status        string `json:"status"        validate:"required"`
	DisputeReason string `json:"disputeReason" validate:"max=1000"`
}

type applyActionRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// --- Messages ---

type sendMessageRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
	SenderID      string `json:"senderId"`
	SenderName    string `json:"senderName"`
	Message       string `json:"message"       validate:"required,max=1000"`
	Type          string `json:"type"          validate:"omitempty,oneof=text image system"`
}
