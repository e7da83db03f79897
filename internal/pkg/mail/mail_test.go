package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		cents    int64
		currency string
		want     string
	}{
		{cents: 1000, currency: "usd", want: "10.00 USD"},
		{cents: 2850, currency: "eur", want: "28.50 EUR"},
		{cents: 5, currency: "usd", want: "0.05 USD"},
		{cents: -125, currency: "usd", want: "-1.25 USD"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.cents, tt.currency); got != tt.want {
			t.Fatalf("FormatAmount(%d, %q) = %q, want %q", tt.cents, tt.currency, got, tt.want)
		}
	}
}

func testConfirmation() PurchaseConfirmation {
	return PurchaseConfirmation{
		To:             "buyer@example.com",
		GridID:         "g1",
		SubscriptionID: "sub_1",
		UnitAmount:     1000,
		Currency:       "usd",
		RenewalDate:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Location:       "Row 1, Column 2",
	}
}

func TestRenderPurchaseConfirmation(t *testing.T) {
	tpl, err := LoadTemplates()
	require.NoError(t, err)

	subject, body, err := tpl.RenderPurchaseConfirmation(testConfirmation())
	require.NoError(t, err)

	assert.Equal(t, "Your grid space g1 is active", subject)
	assert.Contains(t, body, "sub_1")
	assert.Contains(t, body, "10.00 USD")
	assert.Contains(t, body, "February 1, 2024")
	assert.Contains(t, body, "Row 1, Column 2")
}

func TestSendPurchaseConfirmation(t *testing.T) {
	m, err := NewSMTPMailer(Config{Host: "smtp.example.com", Port: "25", Sender: "shop@example.com"})
	require.NoError(t, err)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, m.SendPurchaseConfirmation(context.Background(), testConfirmation()))
	assert.Equal(t, "smtp.example.com:25", gotAddr)
	assert.Equal(t, []string{"buyer@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(string(gotMsg), "From: shop@example.com\r\nTo: buyer@example.com\r\n"))
	assert.Contains(t, string(gotMsg), "Content-Type: text/html")
}

func TestSendPurchaseConfirmationErrors(t *testing.T) {
	m, err := NewSMTPMailer(Config{Host: "smtp.example.com", Port: "25"})
	require.NoError(t, err)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	assert.Error(t, m.SendPurchaseConfirmation(context.Background(), testConfirmation()))

	noRecipient := testConfirmation()
	noRecipient.To = ""
	assert.Error(t, m.SendPurchaseConfirmation(context.Background(), noRecipient))

	unconfigured, err := NewSMTPMailer(Config{})
	require.NoError(t, err)
	assert.Error(t, unconfigured.SendMail("a@example.com", "s", "b"))
}
