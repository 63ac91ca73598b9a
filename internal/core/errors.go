package core

import "errors"

// Error taxonomy shared by services and transports. Wrap with
// fmt.Errorf("%w: ...", ErrX) and match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransactionIDTaken is returned by stores when a finalized
	// transaction id in a group already belongs to another user.
	ErrTransactionIDTaken = errors.New("transaction id taken")
)
