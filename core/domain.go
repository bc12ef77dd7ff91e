package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Transaction is a ledger row for a provider-reported payment transaction.
// ExternalID is the provider-assigned unique identifier and the ledger's
// natural key: re-importing the same external id updates the row in place.
type Transaction struct {
	TransactionID  int64
	ExternalID     string
	OrderID        int64
	Type           string
	State          string
	Number         string
	Amount         int64
	VATAmount      int64
	Description    string
	PayeeReference string
	Created        time.Time
	Updated        time.Time
	RawData        []byte
}

// TransactionField enumerates the ledger columns permitted in lookups.
// Anything outside this set is rejected before query construction.
type TransactionField string

const (
	TransactionFieldID             TransactionField = "transaction_id"
	TransactionFieldExternalID     TransactionField = "external_id"
	TransactionFieldOrderID        TransactionField = "order_id"
	TransactionFieldType           TransactionField = "type"
	TransactionFieldState          TransactionField = "state"
	TransactionFieldNumber         TransactionField = "number"
	TransactionFieldAmount         TransactionField = "amount"
	TransactionFieldVATAmount      TransactionField = "vat_amount"
	TransactionFieldDescription    TransactionField = "description"
	TransactionFieldPayeeReference TransactionField = "payee_reference"
)

func (f TransactionField) Valid() bool {
	switch f {
	case TransactionFieldID,
		TransactionFieldExternalID,
		TransactionFieldOrderID,
		TransactionFieldType,
		TransactionFieldState,
		TransactionFieldNumber,
		TransactionFieldAmount,
		TransactionFieldVATAmount,
		TransactionFieldDescription,
		TransactionFieldPayeeReference:
		return true
	default:
		return false
	}
}

func (f TransactionField) String() string {
	return string(f)
}

func ParseTransactionField(value string) (TransactionField, error) {
	field := TransactionField(strings.TrimSpace(strings.ToLower(value)))
	if !field.Valid() {
		return "", newLedgerFieldError(value)
	}
	return field, nil
}

// Condition is a single field predicate for ledger lookups.
type Condition struct {
	Field TransactionField
	Value any
}

// TransactionNumber tolerates providers that send the number as either a
// JSON string or a bare numeric literal.
type TransactionNumber string

func (n *TransactionNumber) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*n = ""
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*n = TransactionNumber(strings.TrimSpace(value))
		return nil
	}
	var value json.Number
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return err
	}
	*n = TransactionNumber(value.String())
	return nil
}

// Int64 returns the numeric value of the transaction number, 0 when the
// number is absent or not numeric.
func (n TransactionNumber) Int64() int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func (n TransactionNumber) String() string {
	return string(n)
}

// WebhookEnvelope is the decoded shape of a provider webhook notification.
type WebhookEnvelope struct {
	Payment struct {
		ID string `json:"id"`
	} `json:"payment"`
	Transaction struct {
		Number TransactionNumber `json:"number"`
		State  string            `json:"state"`
	} `json:"transaction"`
}

// ParseWebhookData decodes the webhook_data JSON carried in a queue payload.
func ParseWebhookData(raw string) (WebhookEnvelope, error) {
	var envelope WebhookEnvelope
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return WebhookEnvelope{}, newValidationError("core: webhook data is empty", nil)
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return WebhookEnvelope{}, newValidationError("core: decode webhook data: "+err.Error(), map[string]any{
			"cause": err.Error(),
		})
	}
	return envelope, nil
}

// SortKey derives the queue ordering key from a webhook_data string.
// Malformed or absent data keys as 0 and therefore sorts first; this is
// intentional lenient ordering, not an error path.
func SortKey(raw string) int64 {
	envelope, err := ParseWebhookData(raw)
	if err != nil {
		return 0
	}
	return envelope.Transaction.Number.Int64()
}

// allowedImportKeys is the closed set of provider payload keys the importer
// accepts; everything else is stripped before the row reaches storage.
var allowedImportKeys = map[string]struct{}{
	"id":             {},
	"created":        {},
	"updated":        {},
	"type":           {},
	"state":          {},
	"number":         {},
	"amount":         {},
	"vatAmount":      {},
	"description":    {},
	"payeeReference": {},
}

// NormalizeTransaction converts a raw provider transaction record into a
// ledger row: unknown keys are dropped, timestamps normalized to UTC, and the
// original record preserved as an opaque audit blob.
func NormalizeTransaction(raw map[string]any, orderID int64) (Transaction, error) {
	externalID := stringValue(raw["id"])
	if externalID == "" {
		return Transaction{}, fmt.Errorf("core: transaction external id is required")
	}

	filtered := make(map[string]any, len(raw))
	for key, value := range raw {
		if _, ok := allowedImportKeys[key]; ok {
			filtered[key] = value
		}
	}
	blob, err := json.Marshal(filtered)
	if err != nil {
		return Transaction{}, fmt.Errorf("core: encode transaction audit blob: %w", err)
	}

	tx := Transaction{
		ExternalID:     externalID,
		OrderID:        orderID,
		Type:           stringValue(raw["type"]),
		State:          stringValue(raw["state"]),
		Number:         numberValue(raw["number"]),
		Amount:         int64Value(raw["amount"]),
		VATAmount:      int64Value(raw["vatAmount"]),
		Description:    stringValue(raw["description"]),
		PayeeReference: stringValue(raw["payeeReference"]),
		Created:        timeValue(raw["created"]),
		Updated:        timeValue(raw["updated"]),
		RawData:        blob,
	}
	return tx, nil
}

func stringValue(value any) string {
	if value == nil {
		return ""
	}
	if typed, ok := value.(string); ok {
		return strings.TrimSpace(typed)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func numberValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case json.Number:
		return typed.String()
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func int64Value(value any) int64 {
	switch typed := value.(type) {
	case nil:
		return 0
	case float64:
		return int64(typed)
	case int:
		return int64(typed)
	case int64:
		return typed
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func timeValue(value any) time.Time {
	raw := stringValue(value)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
