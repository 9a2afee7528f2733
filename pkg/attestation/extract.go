package attestation

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PaymentRecord holds the payment facts disclosed by a verified transcript
type PaymentRecord struct {
	TransactionID string
	AmountCents   int64
	Status        string
	Beneficiary   string
	Reference     string
}

// Completed reports whether the disclosed payment reached a settled state
func (r *PaymentRecord) Completed() bool {
	switch r.Status {
	case "completed", "settled":
		return true
	}
	return false
}

var (
	uuidPattern   = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	ibanPattern   = regexp.MustCompile(`[A-Z]{2}[0-9]{2}[A-Z0-9]{10,28}`)
	statusPattern = regexp.MustCompile(`"status"\s*:\s*"([a-zA-Z_]+)"`)
	amountPattern = regexp.MustCompile(`"(?:local_)?amount_cents"\s*:\s*([0-9]+)`)
)

// ExtractPayment pulls the disclosed payment fields out of a received HTTP
// transcript. Provers redact everything they do not need to reveal, so the
// transcript may hold a truncated header block, redacted JSON string values
// or JSON broken by redacted numbers. Extraction therefore works in two
// passes: structured JSON first, then pattern recovery over the raw bytes for
// anything still missing.
func ExtractPayment(recv []byte) (*PaymentRecord, error) {
	body := httpBody(recv)

	rec := &PaymentRecord{}
	if payload := jsonPayload(body); payload != nil {
		tx := transactionObject(payload)
		rec.TransactionID = firstString(tx, "transaction_id", "id", "payment_id")
		rec.Status = strings.ToLower(firstString(tx, "status", "state"))
		rec.AmountCents = extractAmountCents(tx)
		rec.Beneficiary = NormalizeIBAN(extractBeneficiary(tx))
		rec.Reference = firstString(tx, "reference", "label")
	}

	raw := string(body)
	if rec.TransactionID == "" {
		rec.TransactionID = uuidPattern.FindString(raw)
	}
	if rec.Status == "" {
		if m := statusPattern.FindStringSubmatch(raw); m != nil {
			rec.Status = strings.ToLower(m[1])
		}
	}
	if rec.AmountCents == 0 {
		if m := amountPattern.FindStringSubmatch(raw); m != nil {
			if cents, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				rec.AmountCents = cents
			}
		}
	}
	if rec.Beneficiary == "" {
		rec.Beneficiary = NormalizeIBAN(ibanPattern.FindString(raw))
	}

	var missing []string
	if rec.TransactionID == "" {
		missing = append(missing, "transaction_id")
	}
	if rec.AmountCents <= 0 {
		missing = append(missing, "amount_cents")
	}
	if rec.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return nil, newError(CodeIncompletePayload, "transcript missing fields: %s", strings.Join(missing, ", "))
	}

	return rec, nil
}

// NormalizeIBAN strips separators and uppercases a routing reference so that
// display-formatted and compact forms compare equal
func NormalizeIBAN(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == ' ' || r == '-' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// httpBody returns the body of an HTTP response transcript, or the whole
// transcript when no header block is present
func httpBody(recv []byte) []byte {
	if i := bytes.Index(recv, []byte("\r\n\r\n")); i >= 0 {
		return recv[i+4:]
	}
	if i := bytes.Index(recv, []byte("\n\n")); i >= 0 {
		return recv[i+2:]
	}
	return recv
}

// jsonPayload parses the outermost JSON object in body, returning nil when
// redaction left nothing parseable
func jsonPayload(body []byte) map[string]interface{} {
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start < 0 || end <= start {
		return nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body[start:end+1], &payload); err != nil {
		return nil
	}
	return payload
}

// transactionObject locates the object carrying the payment fields. Rail APIs
// differ on nesting: some wrap a single transaction, some return a list, some
// respond with the fields at the top level.
func transactionObject(payload map[string]interface{}) map[string]interface{} {
	for _, key := range []string{"transaction", "transfer", "payment"} {
		if tx, ok := payload[key].(map[string]interface{}); ok {
			return tx
		}
	}
	if list, ok := payload["transactions"].([]interface{}); ok && len(list) > 0 {
		if tx, ok := list[0].(map[string]interface{}); ok {
			return tx
		}
	}
	return payload
}

// firstString returns the first present, non-redacted string among keys
func firstString(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" && !redacted(s) {
			return s
		}
	}
	return ""
}

// extractAmountCents reads the payment amount, preferring integer cent fields
// over float fiat-unit fields
func extractAmountCents(obj map[string]interface{}) int64 {
	for _, key := range []string{"amount_cents", "local_amount_cents"} {
		switch v := obj[key].(type) {
		case float64:
			return int64(v)
		case string:
			if cents, err := strconv.ParseInt(v, 10, 64); err == nil {
				return cents
			}
		}
	}
	for _, key := range []string{"amount", "local_amount"} {
		switch v := obj[key].(type) {
		case float64:
			return int64(math.Round(v * 100))
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return int64(math.Round(f * 100))
			}
		}
	}
	return 0
}

// extractBeneficiary reads the counterparty routing reference, looking through
// the nesting shapes rail APIs use
func extractBeneficiary(obj map[string]interface{}) string {
	if s := firstString(obj, "beneficiary_iban", "counterparty_iban", "iban"); s != "" {
		return s
	}
	for _, key := range []string{"beneficiary", "counterparty"} {
		if nested, ok := obj[key].(map[string]interface{}); ok {
			if s := firstString(nested, "iban", "account_number", "routing_info"); s != "" {
				return s
			}
		}
	}
	return ""
}

// redacted reports whether a disclosed string value was fully masked by the
// prover. Masked bytes surface as runs of 'X'.
func redacted(s string) bool {
	for _, r := range s {
		if r != 'X' {
			return false
		}
	}
	return len(s) > 0
}
