// Package automation drives the pharmacy's web ordering portal with a real
// browser. The portal has no API; order lines are typed into its refill
// form the way a person would.
package automation

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"

	"medtrack/model"
)

const portalURL = "https://bestellung.apotheke-portal.example/"

// SubmitOrder logs into the portal and enters one refill line per order
// candidate. Returns the portal's confirmation text. Candidates without a
// national number cannot be entered and abort before anything is submitted.
func SubmitOrder(userID, password string, candidates []model.OrderCandidate) (string, error) {
	if userID == "" || password == "" {
		return "", fmt.Errorf("portal credentials are not configured")
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no order candidates to submit")
	}
	for _, c := range candidates {
		if c.NationalNumber == "" {
			return "", fmt.Errorf("candidate %q has no national number, cannot order via portal", c.MedicationName)
		}
	}

	// Leakless(false) avoids antivirus false positives on the helper binary.
	u := launcher.New().
		Headless(false).
		Leakless(false).
		MustLaunch()

	browser := rod.New().ControlURL(u).MustConnect()
	defer browser.MustClose()

	log.Println("Opening pharmacy portal...")
	page := browser.MustPage(portalURL)
	page.MustWaitStable()

	if err := rod.Try(func() {
		page.MustElement("[name='username']").MustInput(userID)
		page.MustElement("[name='password']").MustInput(password)
	}); err != nil {
		return "", fmt.Errorf("login form not found: %v", err)
	}

	if loginBtn, err := page.ElementR("button, input", "Anmelden|Login"); err == nil {
		loginBtn.MustClick()
	} else {
		page.KeyActions().Press(input.Enter).MustDo()
	}
	page.MustWaitStable()

	if err := rod.Try(func() {
		page.MustElementR("a, span", "Bestellung|Nachbestellung").MustClick()
	}); err != nil {
		return "", fmt.Errorf("order menu not found (login may have failed): %v", err)
	}
	page.MustWaitStable()

	// Dialogs (e.g. "Position hinzugefuegt") are confirmed automatically.
	go page.MustHandleDialog()

	for _, c := range candidates {
		log.Printf("Entering order line: %s x%d", c.MedicationName, c.PackageCount)
		if err := rod.Try(func() {
			field := page.MustElement("[name='pzn'], [name='artikelnummer']")
			field.MustSelectAllText().MustInput(c.NationalNumber)
			qty := page.MustElement("[name='menge'], [name='anzahl']")
			qty.MustSelectAllText().MustInput(fmt.Sprintf("%d", c.PackageCount))
			page.MustElementR("button, input", "Hinzuf|Add").MustClick()
		}); err != nil {
			return "", fmt.Errorf("failed to enter order line for %s: %v", c.MedicationName, err)
		}
		page.MustWaitStable()
	}

	if err := rod.Try(func() {
		page.MustElementR("button, input", "Absenden|Bestellen").MustClick()
	}); err != nil {
		return "", fmt.Errorf("submit button not found: %v", err)
	}
	page.MustWaitStable()

	confirmation := ""
	for i := 0; i < 60; i++ {
		if body, err := page.Element("body"); err == nil {
			text, _ := body.Text()
			if strings.Contains(text, "Bestellnummer") || strings.Contains(text, "erfolgreich") {
				confirmation = text
				break
			}
			if strings.Contains(text, "Fehler") {
				return "", fmt.Errorf("portal reported an error after submit")
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	if confirmation == "" {
		return "", fmt.Errorf("no confirmation shown within 30s")
	}

	log.Println("Order submitted.")
	return confirmation, nil
}
