package domain

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, matching the mobile client.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionStatus represents the lifecycle state of an escrow transaction.
type TransactionStatus string

const (
	StatusPendingAcceptance TransactionStatus = "pending_acceptance"
	StatusPendingPayment    TransactionStatus = "pending_payment"
	StatusPaymentSecured    TransactionStatus = "payment_secured"
	StatusShipped           TransactionStatus = "shipped"
	StatusDelivered         TransactionStatus = "delivered"
	StatusInspectionPeriod  TransactionStatus = "inspection_period"
	StatusCompleted         TransactionStatus = "completed"
	StatusDisputed          TransactionStatus = "disputed"
	StatusCancelled         TransactionStatus = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []TransactionStatus{
	StatusPendingAcceptance,
	StatusPendingPayment,
	StatusPaymentSecured,
	StatusShipped,
	StatusDelivered,
	StatusInspectionPeriod,
	StatusCompleted,
	StatusDisputed,
	StatusCancelled,
}

// statusMessages is the canned system message recorded for each status.
// Clients match on these strings; do not reword.
var statusMessages = map[TransactionStatus]string{
	StatusPendingAcceptance: "Transaction pending acceptance",
	StatusPendingPayment:    "Transaction accepted. Awaiting payment.",
	StatusPaymentSecured:    "Payment secured. Item can be shipped.",
	StatusShipped:           "Item shipped.",
	StatusDelivered:         "Item delivered.",
	StatusInspectionPeriod:  "Inspection period started.",
	StatusCompleted:         "Transaction completed successfully. Funds released.",
	StatusDisputed:          "Dispute opened. Our mediation team will review the case.",
	StatusCancelled:         "Transaction cancelled.",
}

// CreatedMessage is the system message appended when a transaction is created.
const CreatedMessage = "Transaction created, awaiting acceptance by the other party"

// validTransitions is only consulted in strict mode. The default mutator
// accepts every transition.
var validTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPendingAcceptance: {StatusPendingPayment, StatusDisputed, StatusCancelled},
	StatusPendingPayment:    {StatusPaymentSecured, StatusDisputed, StatusCancelled},
	StatusPaymentSecured:    {StatusShipped, StatusDisputed, StatusCancelled},
	StatusShipped:           {StatusDelivered, StatusInspectionPeriod, StatusDisputed, StatusCancelled},
	StatusDelivered:         {StatusInspectionPeriod, StatusDisputed, StatusCancelled},
	StatusInspectionPeriod:  {StatusCompleted, StatusDisputed, StatusCancelled},
	StatusDisputed:          {StatusCompleted, StatusCancelled},
}

// Valid reports whether s is one of the known statuses.
func (s TransactionStatus) Valid() bool {
	_, ok := statusMessages[s]
	return ok
}

// SystemMessage returns the canned chat line for entering s.
func (s TransactionStatus) SystemMessage() string {
	return statusMessages[s]
}

// CanTransitionTo reports whether the strict transition table allows s -> next.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsActive reports whether s counts as an active deal on the dashboard.
func (s TransactionStatus) IsActive() bool {
	switch s {
	case StatusPaymentSecured, StatusShipped, StatusDelivered, StatusInspectionPeriod:
		return true
	}
	return false
}

// IsPending reports whether s still waits on acceptance or payment.
func (s TransactionStatus) IsPending() bool {
	return s == StatusPendingAcceptance || s == StatusPendingPayment
}

// Placeholder party ids used when the other side has not joined yet.
const (
	PlaceholderBuyerID  = "temp_buyer_id"
	PlaceholderSellerID = "temp_seller_id"
)

// IsPlaceholderParty reports whether id stands for a not-yet-identified party.
func IsPlaceholderParty(id string) bool {
	return id == "" || id == PlaceholderBuyerID || id == PlaceholderSellerID
}

// DefaultInspectionPeriod is the number of days a buyer gets to inspect a
// delivered item when the creator does not set one.
const DefaultInspectionPeriod = 3

// PriceScale is the number of decimal places a price is stored with.
const PriceScale = 2

// NormalizePrice returns p at PriceScale, or ErrPricePrecision when p has
// more significant decimals than that.
func NormalizePrice(p decimal.Decimal) (decimal.Decimal, error) {
	rounded := p.Round(PriceScale)
	if !rounded.Equal(p) {
		return p, ErrPricePrecision
	}
	return rounded, nil
}

// Transaction is the escrow deal between a buyer and a seller.
// BuyerName and SellerName are snapshots taken at creation and are not
// refreshed when a profile name changes.
type Transaction struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Price            decimal.Decimal   `json:"price"`
	Status           TransactionStatus `json:"status"`
	BuyerID          string            `json:"buyerId"`
	SellerID         string            `json:"sellerId"`
	BuyerName        string            `json:"buyerName"`
	SellerName       string            `json:"sellerName"`
	CreatedDate      Date              `json:"createdDate"`
	LastUpdate       Date              `json:"lastUpdate"`
	ExpectedDelivery Date              `json:"expectedDelivery,omitzero"`
	InspectionPeriod int               `json:"inspectionPeriod"`
	DeliveryAddress  string            `json:"deliveryAddress,omitempty"`
	DisputeReason    string            `json:"disputeReason,omitempty"`
	Images           []string          `json:"images,omitempty"`
}

// IsBuyer reports whether userID is the buyer side of t.
func (t *Transaction) IsBuyer(userID string) bool {
	return userID != "" && t.BuyerID == userID
}

// Involves reports whether userID is either party of t.
func (t *Transaction) Involves(userID string) bool {
	return userID != "" && (t.BuyerID == userID || t.SellerID == userID)
}

// StatusChange carries the fields overwritten by a status update.
type StatusChange struct {
	Status        TransactionStatus
	DisputeReason string // empty keeps the stored reason
	LastUpdate    Date
}
