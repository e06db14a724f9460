package services

import "errors"

var (
	// ErrProductNotFound means a basket line referenced a product that cannot
	// be resolved. It is raised before any persistence happens.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidQuantity rejects non-positive quantities at the cart
	// boundary. Callers that want a line gone must remove it, not zero it.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrCodeGenerationExhausted means a unique order code could not be
	// produced within the retry bound. Retrying the whole order creation gets
	// fresh random codes.
	ErrCodeGenerationExhausted = errors.New("order code generation exhausted retries")

	// ErrUsernameTaken and ErrEmailTaken surface duplicate registrations.
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown accounts and wrong passwords,
	// so a login failure never discloses which of the two it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
