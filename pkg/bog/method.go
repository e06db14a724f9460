package bog

// PaymentMethod is the closed set of checkout payment options. Keeping it a
// sealed interface means an unknown method cannot reach the request builder;
// the only place free-form input enters is ParseMethod at the HTTP boundary.
type PaymentMethod interface {
	paymentMethod()
}

// Card is a plain one-off card payment.
type Card struct{}

// Installment is a bank-financed installment plan over a number of months.
type Installment struct {
	Months int
}

// BNPL is the "buy now, pay later" split-payment plan.
type BNPL struct {
	Parts int
}

func (Card) paymentMethod()        {}
func (Installment) paymentMethod() {}
func (BNPL) paymentMethod()        {}

const (
	defaultInstallmentMonths = 12
	defaultBNPLParts         = 4
)

// ParseMethod maps a client-supplied method selector to a PaymentMethod.
// Unknown selectors degrade to Card, the safest path, rather than failing the
// whole checkout over a misconfigured client.
func ParseMethod(s string) PaymentMethod {
	switch s {
	case "installment":
		return Installment{Months: defaultInstallmentMonths}
	case "bnpl":
		return BNPL{Parts: defaultBNPLParts}
	default:
		return Card{}
	}
}

// MethodOptions carries the method-specific knobs of a create-order request.
type MethodOptions struct {
	Loan *LoanOptions `json:"loan,omitempty"`
	BNPL *BNPLOptions `json:"bnpl,omitempty"`
}

// LoanOptions configures an installment plan.
type LoanOptions struct {
	Months int `json:"month"`
}

// BNPLOptions configures a split-payment plan.
type BNPLOptions struct {
	Enabled bool `json:"enabled"`
	Parts   int  `json:"parts"`
}

// MethodConfig translates a PaymentMethod into the gateway's accepted-methods
// list and options. The type switch is exhaustive over the sealed set.
func MethodConfig(m PaymentMethod) ([]string, MethodOptions) {
	switch v := m.(type) {
	case Installment:
		months := v.Months
		if months <= 0 {
			months = defaultInstallmentMonths
		}
		return []string{"bog_loan"}, MethodOptions{Loan: &LoanOptions{Months: months}}
	case BNPL:
		parts := v.Parts
		if parts <= 0 {
			parts = defaultBNPLParts
		}
		return []string{"bnpl"}, MethodOptions{BNPL: &BNPLOptions{Enabled: true, Parts: parts}}
	default:
		return []string{"card"}, MethodOptions{}
	}
}
