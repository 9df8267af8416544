package models

import "errors"

// Custom errors
var (
	ErrInvalidStake        = errors.New("stake must be positive")
	ErrInsufficientCash    = errors.New("insufficient cash to place bet")
	ErrUnknownBet          = errors.New("unknown bet id")
	ErrAlreadySettled      = errors.New("bet already settled")
	ErrUnknownPendingBet   = errors.New("unknown pending bet id")
	ErrInvalidSchedule     = errors.New("invalid schedule specification")
	ErrUnsupportedDataType = errors.New("unsupported data type")
	ErrRaceNotFound        = errors.New("race not found")
)
