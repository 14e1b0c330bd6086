package domain

// Action is a user-facing lifecycle step offered on a transaction screen.
type Action string

const (
	ActionAccept          Action = "accept"
	ActionPay             Action = "pay"
	ActionShip            Action = "ship"
	ActionConfirmDelivery Action = "confirm_delivery"
	ActionApprove         Action = "approve"
	ActionDispute         Action = "dispute"
	ActionCancel          Action = "cancel"
)

// actionTargets maps each action to the status it moves a transaction to.
var actionTargets = map[Action]TransactionStatus{
	ActionAccept:          StatusPendingPayment,
	ActionPay:             StatusPaymentSecured,
	ActionShip:            StatusShipped,
	ActionConfirmDelivery: StatusInspectionPeriod,
	ActionApprove:         StatusCompleted,
	ActionDispute:         StatusDisputed,
	ActionCancel:          StatusCancelled,
}

// Target returns the status reached by a, and false for unknown actions.
func (a Action) Target() (TransactionStatus, bool) {
	s, ok := actionTargets[a]
	return s, ok
}

// AvailableActions returns the actions the buyer (isBuyer) or the seller may
// take while a transaction sits in status. Terminal and disputed states
// offer nothing.
func AvailableActions(status TransactionStatus, isBuyer bool) []Action {
	actions := []Action{}
	switch status {
	case StatusPendingAcceptance:
		if !isBuyer {
			actions = append(actions, ActionAccept)
		}
		actions = append(actions, ActionCancel)
	case StatusPendingPayment:
		if isBuyer {
			actions = append(actions, ActionPay)
		}
		actions = append(actions, ActionCancel)
	case StatusPaymentSecured:
		if !isBuyer {
			actions = append(actions, ActionShip)
		}
	case StatusShipped:
		if isBuyer {
			actions = append(actions, ActionConfirmDelivery)
		}
	case StatusInspectionPeriod:
		if isBuyer {
			actions = append(actions, ActionApprove, ActionDispute)
		}
	}
	return actions
}

// Allows reports whether a is among AvailableActions(status, isBuyer).
func Allows(status TransactionStatus, isBuyer bool, a Action) bool {
	for _, candidate := range AvailableActions(status, isBuyer) {
		if candidate == a {
			return true
		}
	}
	return false
}
