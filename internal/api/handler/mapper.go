package handler

import (
	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

// --- Request → Service input ---

func toRegisterInput(req registerRequest) ports.RegisterInput {
	return ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		UserType: domain.UserType(req.UserType),
	}
}

func toUserPatch(req updateUserRequest) domain.UserPatch {
	patch := domain.UserPatch{
		Email: req.Email,
		Name:  req.Name,
		Phone: req.Phone,
	}
	if req.UserType != nil {
		t := domain.UserType(*req.UserType)
		patch.UserType = &t
	}
	return patch
}

func toCreateTransactionInput(req createTransactionRequest) ports.CreateTransactionInput {
	return ports.CreateTransactionInput{
		Title:            req.Title,
		Description:      req.Description,
		Price:            req.Price,
		Status:           domain.TransactionStatus(req.Status),
		BuyerID:          req.BuyerID,
		SellerID:         req.SellerID,
		BuyerName:        req.BuyerName,
		SellerName:       req.SellerName,
		ExpectedDelivery: req.ExpectedDelivery,
		InspectionPeriod: req.InspectionPeriod,
		DeliveryAddress:  req.DeliveryAddress,
		Images:           req.Images,
	}
}

// toSendMessageInput fills a missing sender with the authenticated user.
func toSendMessageInput(req sendMessageRequest, callerID string) ports.SendMessageInput {
	senderID := req.SenderID
	if senderID == "" {
		senderID = callerID
	}
	return ports.SendMessageInput{
		TransactionID: req.TransactionID,
		SenderID:      senderID,
		SenderName:    req.SenderName,
		Message:       req.Message,
		Type:          domain.MessageType(req.Type),
	}
}
