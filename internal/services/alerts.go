package services

import (
	"fmt"
	"log"
)

// AlertService notifies the operator over WhatsApp when money movement or
// bookkeeping goes wrong. Alerts are best-effort: a delivery failure is
// logged and dropped, it never changes the outcome of the request that
// raised it.
type AlertService struct {
	twilioService *TwilioService
	operatorPhone string
}

// NewAlertService creates an alert service targeting the operator's phone
func NewAlertService(twilioService *TwilioService, operatorPhone string) *AlertService {
	return &AlertService{
		twilioService: twilioService,
		operatorPhone: operatorPhone,
	}
}

// PayoutFailed reports a payout that was attempted and rejected. The
// verification stands; the operator settles the payment out-of-band.
func (a *AlertService) PayoutFailed(vehicle, referenceID string, amount int, cause error) {
	a.send(fmt.Sprintf(
		"⚠️ Payout failed\nVehicle: %s\nAmount: ₹%d\nReference: %s\nReason: %v\nVerification is recorded; please settle manually.",
		vehicle, amount, referenceID, cause))
}

// TransactionLogFailed reports a transaction log row that could not be
// written. The payout outcome in the message is the only remaining record.
func (a *AlertService) TransactionLogFailed(vehicle, referenceID, status string, cause error) {
	a.send(fmt.Sprintf(
		"⚠️ Transaction log write failed\nVehicle: %s\nReference: %s\nPayout status: %s\nReason: %v",
		vehicle, referenceID, status, cause))
}

func (a *AlertService) send(message string) {
	if a == nil || a.twilioService == nil || a.operatorPhone == "" {
		log.Printf("📢 Operator alert (no channel configured): %s", message)
		return
	}
	if err := a.twilioService.SendWhatsAppMessage(a.operatorPhone, message); err != nil {
		log.Printf("Failed to deliver operator alert: %v", err)
	}
}
