package mail

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PurchaseConfirmation is the input contract of the purchase email.
type PurchaseConfirmation struct {
	To             string    `json:"to"`
	GridID         string    `json:"grid_id"`
	SubscriptionID string    `json:"subscription_id"`
	UnitAmount     int64     `json:"unit_amount"`
	Currency       string    `json:"currency"`
	RenewalDate    time.Time `json:"renewal_date"`
	Location       string    `json:"location"`
}

const purchaseConfirmationTemplate = "purchase_confirmation"

// FormatAmount renders minor units as "12.50 USD".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}

// RenderPurchaseConfirmation returns subject and HTML body.
func (t *Templates) RenderPurchaseConfirmation(msg PurchaseConfirmation) (string, string, error) {
	body, err := t.Render(purchaseConfirmationTemplate, map[string]interface{}{
		"GridID":         msg.GridID,
		"Location":       msg.Location,
		"SubscriptionID": msg.SubscriptionID,
		"Amount":         FormatAmount(msg.UnitAmount, msg.Currency),
		"RenewalDate":    msg.RenewalDate.UTC().Format("January 2, 2006"),
	})
	if err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf("Your grid space %s is active", msg.GridID)
	return subject, body, nil
}

// SendPurchaseConfirmation renders and sends the confirmation synchronously.
func (m *SMTPMailer) SendPurchaseConfirmation(ctx context.Context, msg PurchaseConfirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("purchase confirmation has no recipient")
	}
	subject, body, err := m.templates.RenderPurchaseConfirmation(msg)
	if err != nil {
		return err
	}
	return m.SendMail(msg.To, subject, body)
}
