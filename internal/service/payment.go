package service

import (
	"strings"

	"checkout-service/internal/models"
)

// PaymentInput is the client's description of how the order is paid.
// Reference is never stored in full.
type PaymentInput struct {
	Method    string `json:"method" binding:"required"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Summarize turns client payment input into the stored summary
func (p PaymentInput) Summarize() (models.PaymentSummary, error) {
	method := strings.TrimSpace(p.Method)
	if method == "" {
		return models.PaymentSummary{}, Validation("payment method is required")
	}

	status := strings.ToLower(strings.TrimSpace(p.Status))
	switch status {
	case "":
		status = models.PaymentStatusPending
	case models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusFailed:
	default:
		return models.PaymentSummary{}, Validation("invalid payment status %q", p.Status)
	}

	return models.PaymentSummary{
		Method:          method,
		MaskedReference: MaskReference(p.Reference),
		Status:          status,
	}, nil
}

// MaskReference keeps only the last four characters of a payment reference.
// References of four characters or fewer are masked entirely.
func MaskReference(ref string) string {
	r := []rune(strings.TrimSpace(ref))
	switch {
	case len(r) == 0:
		return ""
	case len(r) <= 4:
		return "****"
	default:
		return "****" + string(r[len(r)-4:])
	}
}
