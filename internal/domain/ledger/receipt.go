package ledger

import (
	"encoding/hex"
	"strings"
	"time"
)

// Gate is the verification classification of a receipt
type Gate string

const (
	GateVerified   Gate = "VERIFIED"
	GateUnverified Gate = "UNVERIFIED"
)

// Receipt is a proof record attached to an event
type Receipt struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	CapturedAt     time.Time `json:"capturedAt"`
	Gate           Gate      `json:"gate"`
	ReasonCodes    []string  `json:"reasonCodes,omitempty"`
	Confidence     *float64  `json:"confidence,omitempty"`
	EventID        string    `json:"eventId,omitempty"`
	AttachmentHash string    `json:"attachmentHash,omitempty"` // lowercase hex SHA-256
	Metadata       Metadata  `json:"metadata,omitempty"`
}

// Normalize validates the receipt for attachment to eventID and fills in
// defaults. The receipt itself is left untouched.
func (r Receipt) Normalize(eventID string, now time.Time) (Receipt, error) {
	out := r.Clone()
	out.ID = strings.TrimSpace(out.ID)
	out.Title = strings.TrimSpace(out.Title)

	if out.ID == "" {
		return Receipt{}, ValidationError{Field: "receipt.id", Message: "is required"}
	}
	if out.Title == "" {
		return Receipt{}, ValidationError{Field: "receipt.title", Message: "is required"}
	}

	switch Gate(strings.ToUpper(string(out.Gate))) {
	case "":
		out.Gate = GateUnverified
	case GateVerified:
		out.Gate = GateVerified
	case GateUnverified:
		out.Gate = GateUnverified
	default:
		return Receipt{}, ValidationError{Field: "receipt.gate", Message: "must be VERIFIED or UNVERIFIED"}
	}

	if out.Confidence != nil && (*out.Confidence < 0 || *out.Confidence > 1) {
		return Receipt{}, ValidationError{Field: "receipt.confidence", Message: "must be between 0 and 1"}
	}

	switch out.EventID {
	case "":
		out.EventID = eventID
	case eventID:
	default:
		return Receipt{}, ValidationError{Field: "receipt.eventId", Message: "does not match the target event"}
	}

	if out.AttachmentHash != "" && !isSHA256Hex(out.AttachmentHash) {
		return Receipt{}, ValidationError{Field: "receipt.attachmentHash", Message: "must be a lowercase hex SHA-256 digest"}
	}

	for i, code := range out.ReasonCodes {
		if strings.TrimSpace(code) == "" {
			return Receipt{}, ValidationError{Field: "receipt.reasonCodes", Message: "must not contain empty codes"}
		}
		out.ReasonCodes[i] = strings.TrimSpace(code)
	}

	if out.CapturedAt.IsZero() {
		out.CapturedAt = now
	}
	out.CapturedAt = out.CapturedAt.UTC()

	return out, nil
}

// Clone returns a deep copy
func (r Receipt) Clone() Receipt {
	out := r
	if r.ReasonCodes != nil {
		out.ReasonCodes = append([]string(nil), r.ReasonCodes...)
	}
	if r.Confidence != nil {
		c := *r.Confidence
		out.Confidence = &c
	}
	out.Metadata = r.Metadata.Clone()
	return out
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 || strings.ToLower(s) != s {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
