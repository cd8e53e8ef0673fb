package usecase

import (
	"fmt"
	"strings"

	"mediation-bot/internal/domain"
)

// User-facing texts are German, matching the audience of the deployment.

const (
	amountRePromptText    = "Bitte nur eine Zahl eingeben."
	vicReadyPromptText    = "Bitte sende nun einen Screenshot vom Chat,\nder zeigt, dass der VIC bereit zum Zahlen ist."
	screenshotOnlyText    = "Bitte sende **nur einen Screenshot**."
	submittedAckText      = "Vielen Dank.\nAlle Informationen wurden übermittelt.\nBitte warte, bis wir uns bei dir melden."
	waitingAdminText      = "Bitte warte, bis wir uns bei dir melden."
	paymentAckText        = "Danke. Bitte warte auf weitere Informationen."
	payoutPromptText      = "Bitte sende jetzt den Auszahlungstext oder Link."
	claimRePromptText     = "Bestätige deine Auszahlung mit /claim."
	idlePromptText        = "Starte eine neue Anfrage mit /start."
	rejectionText         = "❌ Deine Zahlung ist leider nicht durchgegangen.\n\n❌ Es findet keine Auszahlung statt."
	rejectedAckText       = "Abgelehnt"
	alreadyHandledText    = "Diese Anfrage wurde bereits bearbeitet."
	requestNotFoundText   = "Diese Anfrage konnte nicht gefunden werden."
	internalFaultText     = "Ein Fehler ist aufgetreten. Bitte versuche es später erneut."
	statusProofReady      = "Screenshot erhalten"
	statusPaymentReceived = "Überweisungsnachweis erhalten"
)

func welcomeText(username string) string {
	return fmt.Sprintf("Willkommen @%s\n\nGib bitte den Betrag ein,\nden dein VIC überweisen möchte", username)
}

// adminSummaryCaption renders the mediator-facing summary shown with both
// decision points, differing only in the status label.
func adminSummaryCaption(req domain.Request, status string) string {
	return fmt.Sprintf(
		"👤 Kunde: @%s\n🆔 Referenz: #%s\n💰 Betrag: %s €\n\nStatus: %s",
		req.Requester.Username, req.RefID, req.Amount, status,
	)
}

func paypalPromptText(username string) string {
	return fmt.Sprintf("Bitte sende jetzt die PayPal-Adresse für @%s", username)
}

func paymentInstructionsText(amount, address string) string {
	return fmt.Sprintf(
		"Bitte lass den VIC den Betrag von %s € an die folgende PayPal-Adresse senden:\n\n%s\n\n"+
			"Bitte sende anschließend einen Screenshot der PayPal-Überweisung\nhier in den Chat.",
		amount, address,
	)
}

func payoutInstructionsText(payout string) string {
	return fmt.Sprintf("💰 Dein Geld wartet auf dich!\n\n%s\n\nBestätige deine Auszahlung mit /claim:", payout)
}

func claimConfirmedText(username string) string {
	return fmt.Sprintf("✅ Auszahlung bestätigt.\n\nVielen Dank @%s", username)
}

func decisionActions(refID string) []domain.Action {
	return []domain.Action{
		{Label: "✅ Anfrage annehmen", Payload: domain.ActionPayload(domain.ActionAccept, refID)},
		{Label: "❌ Anfrage ablehnen", Payload: domain.ActionPayload(domain.ActionReject, refID)},
	}
}

func payoutActions(refID string) []domain.Action {
	return []domain.Action{
		{Label: "🔗 Auszahlungslink senden", Payload: domain.ActionPayload(domain.ActionPayout, refID)},
		{Label: "❌ Zahlung nicht durchgegangen", Payload: domain.ActionPayload(domain.ActionFail, refID)},
	}
}

// validAmount reports whether text is a plain number: digits with an optional
// decimal point, nothing else.
func validAmount(text string) bool {
	digits := strings.ReplaceAll(text, ".", "")
	if digits == "" || strings.Count(text, ".") > 1 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
