package ussd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/majipay/backend/internal/utils"
)

// ResponseType tells the carrier gateway whether the dial session should
// continue prompting or disconnect.
type ResponseType string

const (
	ResponseContinue  ResponseType = "continue"
	ResponseTerminate ResponseType = "terminate"
)

// MenuResponse is the interpreter's answer to one USSD step.
type MenuResponse struct {
	Type ResponseType
	Text string
}

// Terminal reports whether the dial session ends with this response.
func (r MenuResponse) Terminal() bool {
	return r.Type == ResponseTerminate
}

// Effect is a side effect the interpreter wants the boundary layer to
// execute. The interpreter itself performs no I/O.
type Effect interface {
	effect()
}

// SendSMS asks the boundary to deliver a text message.
type SendSMS struct {
	To   string
	Body string
}

// InitiatePayment asks the boundary to start a payment push to the
// subscriber's phone.
type InitiatePayment struct {
	Phone      string
	Amount     float64
	AccountRef string
}

func (SendSMS) effect()         {}
func (InitiatePayment) effect() {}

const rootMenu = "Welcome to MajiPay\n" +
	"1. Meter Reading\n" +
	"2. Pay Water Bill\n" +
	"3. Report an Issue\n" +
	"0. Exit"

const issueMenu = "Select the issue to report:\n" +
	"1. Water leakage\n" +
	"2. No water supply"

var issueLabels = map[string]string{
	"1": "Water leakage",
	"2": "No water supply",
}

// Interpreter maps an accumulated dial-string to a menu response. It is
// stateless: the carrier resends the full input history on every keystroke,
// so the position in the menu tree is re-derived from the dial-string alone.
type Interpreter struct {
	// OpsPhone receives issue reports raised through the menu.
	OpsPhone string
}

// Continue builds a response that keeps the dial session open.
func Continue(text string) MenuResponse {
	return MenuResponse{Type: ResponseContinue, Text: text}
}

// Terminate builds a response that ends the dial session.
func Terminate(text string) MenuResponse {
	return MenuResponse{Type: ResponseTerminate, Text: text}
}

// Interpret computes the response for one USSD step. dialString carries the
// caller's full choice history joined by '*', e.g. "2*150" means option 2
// then an entered amount of 150. Same input always yields the same output.
func (i *Interpreter) Interpret(phoneNumber, dialString string) (MenuResponse, []Effect) {
	var tokens []string
	if dialString != "" {
		tokens = strings.Split(dialString, "*")
	}

	if len(tokens) == 0 {
		return Continue(rootMenu), nil
	}

	switch tokens[0] {
	case "1":
		if len(tokens) == 1 {
			return Terminate("Your current meter reading is 02415 units. Outstanding balance: KES 742."), nil
		}
	case "2":
		if len(tokens) == 1 {
			return Continue("Enter amount to pay (KES):"), nil
		}
		if len(tokens) == 2 {
			return i.initiatePayment(phoneNumber, tokens[1])
		}
	case "3":
		if len(tokens) == 1 {
			return Continue(issueMenu), nil
		}
		if len(tokens) == 2 {
			return i.reportIssue(phoneNumber, tokens[1])
		}
	case "0":
		if len(tokens) == 1 {
			return Terminate("Goodbye! Thank you for using MajiPay."), nil
		}
	}

	return Terminate("Invalid option selected."), nil
}

func (i *Interpreter) initiatePayment(phoneNumber, raw string) (MenuResponse, []Effect) {
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || amount < 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return Terminate("Invalid amount entered."), nil
	}

	phone := utils.NormalizePhone(phoneNumber)
	effects := []Effect{InitiatePayment{
		Phone:      phone,
		Amount:     amount,
		AccountRef: phone,
	}}
	// The push is only initiated here; settlement is confirmed later via
	// the provider callback, so the text must not promise completion.
	msg := fmt.Sprintf("Payment of KES %s initiated. You will receive a prompt on your phone to authorize it.", raw)
	return Terminate(msg), effects
}

func (i *Interpreter) reportIssue(phoneNumber, option string) (MenuResponse, []Effect) {
	label, ok := issueLabels[option]
	if !ok {
		return Terminate("Invalid option selected."), nil
	}

	effects := []Effect{SendSMS{
		To:   i.OpsPhone,
		Body: fmt.Sprintf("Issue report from %s: %s", utils.NormalizePhone(phoneNumber), label),
	}}
	return Terminate("Thank you. Your report has been received and our team will follow up."), effects
}
