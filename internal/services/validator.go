package services

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"turn-dispatch/internal/status"
	"turn-dispatch/models"
)

// SubmitRequest is the raw inbound ticket request. Age is declared as
// any so a non-numeric value reaches the validator and is rejected as
// invalid_age instead of failing at bind time.
type SubmitRequest struct {
	Name    string `json:"name"`
	Age     any    `json:"age"`
	Type    string `json:"type"`
	VipCode string `json:"vip_code"`
}

// TicketInput is a validator-approved, normalized ticket request.
type TicketInput struct {
	Name  string
	Age   int
	Class models.Class
}

// Validator checks submit requests against the admission rules. It
// holds no mutable state; the only configuration is the VIP secret.
type Validator struct {
	vipSecret       string
	vipSecretBcrypt string
}

// NewValidator builds a validator with the shared VIP admission secret.
// When vipSecretBcrypt is set it takes precedence and the supplied code
// is checked against the hash; otherwise vipSecret is compared in
// constant time.
func NewValidator(vipSecret, vipSecretBcrypt string) *Validator {
	return &Validator{
		vipSecret:       vipSecret,
		vipSecretBcrypt: vipSecretBcrypt,
	}
}

// Validate runs the admission checks in order and stops at the first
// failure.
func (v *Validator) Validate(req SubmitRequest) (TicketInput, *status.ValidationError) {
	var none TicketInput

	if req.Name == "" {
		return none, status.NewValidationError(status.CodeMissingField, "name", "name is required")
	}
	if req.Age == nil {
		return none, status.NewValidationError(status.CodeMissingField, "age", "age is required")
	}
	if req.Type == "" {
		return none, status.NewValidationError(status.CodeMissingField, "type", "type is required")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return none, status.NewValidationError(status.CodeInvalidName, "name", "name must not be blank")
	}

	age, ok := numericAge(req.Age)
	if !ok || age < 1 || age > 120 {
		return none, status.NewValidationError(status.CodeInvalidAge, "age", "age must be a number between 1 and 120")
	}

	class, ok := models.ParseClass(req.Type)
	if !ok {
		msg := fmt.Sprintf("type must be one of: %s", strings.Join(models.ClassNames, ", "))
		return none, status.NewValidationError(status.CodeInvalidClass, "type", msg)
	}

	if class == models.ClassPriority && age <= 60 {
		return none, status.NewValidationError(status.CodePriorityAgeTooLow, "age", "priority tickets require age over 60")
	}

	if class == models.ClassVIP && !v.vipCredentialOK(req.VipCode) {
		return none, status.NewValidationError(status.CodeVipCredentialRejected, "vip_code", "vip code rejected")
	}

	return TicketInput{Name: name, Age: age, Class: class}, nil
}

// numericAge accepts the numeric shapes a decoded JSON body can carry.
// Fractional ages are not ages.
func numericAge(raw any) (int, bool) {
	switch n := raw.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func (v *Validator) vipCredentialOK(code string) bool {
	if code == "" {
		return false
	}
	if v.vipSecretBcrypt != "" {
		return bcrypt.CompareHashAndPassword([]byte(v.vipSecretBcrypt), []byte(code)) == nil
	}
	if v.vipSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v.vipSecret), []byte(code)) == 1
}
