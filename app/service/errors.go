package service

import "errors"

var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrUserNotFound           = errors.New("user not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInvalidPlan            = errors.New("invalid plan")
	ErrInvalidState           = errors.New("invalid state")
	ErrGateway                = errors.New("payment gateway error")
	ErrVerificationInProgress = errors.New("verification already in progress")
	ErrForbidden              = errors.New("forbidden")
)
