package checkout

// Step is a state of the checkout state machine. Steps run in declaration order
// and the first failure is terminal.
type Step int

const (
	StepStart Step = iota
	StepCartValidated
	StepShippingValidated
	StepGrandTotalReconciled
	StepPaymentValidated
	StepOrderPersisted
	StepDetailsEnqueued
)

var stepNames = [...]string{
	StepStart:                "start",
	StepCartValidated:        "cart_validated",
	StepShippingValidated:    "shipping_validated",
	StepGrandTotalReconciled: "grand_total_reconciled",
	StepPaymentValidated:     "payment_validated",
	StepOrderPersisted:       "order_persisted",
	StepDetailsEnqueued:      "details_enqueued",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// API tags attached to errors so clients can route them to the right form.
const (
	APICart     = "cart"
	APIShipping = "shipping"
	APIPayment  = "payment"
	APIProfile  = "profile"
	APICheckout = "checkout"
)
