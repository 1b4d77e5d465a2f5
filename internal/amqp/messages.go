package amqp

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// LedgerSavedMessage announces that a ledger file was written. It carries
// no records; consumers re-read the file, which stays the only source of
// truth.
type LedgerSavedMessage struct {
	Path      string    `json:"path" validate:"required"`
	Checksum  string    `json:"checksum" validate:"required,hexadecimal,len=64"`
	Records   int       `json:"records" validate:"gte=0"`
	Years     int       `json:"years" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func messageValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// NewLedgerSavedMessage creates a notification stamped with the current time.
func NewLedgerSavedMessage(path, checksum string, records, years int) *LedgerSavedMessage {
	return &LedgerSavedMessage{
		Path:      path,
		Checksum:  checksum,
		Records:   records,
		Years:     years,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks the message fields.
func (m *LedgerSavedMessage) Validate() error {
	if err := messageValidator().Struct(m); err != nil {
		return fmt.Errorf("invalid ledger saved message: %w", err)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSavedMessageFromJSON decodes and validates a message.
func LedgerSavedMessageFromJSON(data []byte) (*LedgerSavedMessage, error) {
	var msg LedgerSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
