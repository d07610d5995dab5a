// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced row does not exist.
type ErrNotFound struct {
	Entity string
	ID     int64
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Entity, e.ID)
}

func NewNotFound(entity string, id int64) error {
	return &ErrNotFound{Entity: entity, ID: id}
}

// Helper constructor
func NewCampaignNotFound(id int64) error {
	return &ErrNotFound{Entity: "campaign", ID: id}
}

// ErrConfiguration means a required setting or credential is missing.
type ErrConfiguration struct {
	Setting string
	Message string
}

func (e *ErrConfiguration) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is not configured", e.Setting)
}

func NewConfiguration(setting, message string) error {
	return &ErrConfiguration{Setting: setting, Message: message}
}

// ErrDeliveryFailure is a provider rejection or timeout on a send.
type ErrDeliveryFailure struct {
	Reason string
}

func (e *ErrDeliveryFailure) Error() string {
	return "delivery failed: " + e.Reason
}

func NewDeliveryFailure(reason string) error {
	return &ErrDeliveryFailure{Reason: reason}
}

// ErrQuotaExceeded carries the human readable reason from the usage guard.
type ErrQuotaExceeded struct {
	Action  string
	Reason  string
	Current int
	Limit   int
}

func (e *ErrQuotaExceeded) Error() string {
	return e.Reason
}

func NewQuotaExceeded(action, reason string, current, limit int) error {
	return &ErrQuotaExceeded{Action: action, Reason: reason, Current: current, Limit: limit}
}

type ErrInvalidInput struct {
	Field  string
	Reason string
}

func (e *ErrInvalidInput) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func NewInvalidInput(field, reason string) error {
	return &ErrInvalidInput{Field: field, Reason: reason}
}

func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ErrConfiguration
	return errors.As(err, &target)
}

func IsDeliveryFailure(err error) bool {
	var target *ErrDeliveryFailure
	return errors.As(err, &target)
}

func IsQuotaExceeded(err error) bool {
	var target *ErrQuotaExceeded
	return errors.As(err, &target)
}

func IsInvalidInput(err error) bool {
	var target *ErrInvalidInput
	return errors.As(err, &target)
}
