package models

import "errors"

var (
	ErrDataNotFound   = errors.New("price data not found")
	ErrModelNotFound  = errors.New("model artifact not found")
	ErrTargetMissing  = errors.New("target column missing from price data")
	ErrSchemaMismatch = errors.New("feature schema mismatch")
	ErrUnknownModel   = errors.New("unknown model")
	ErrNotEnoughRows  = errors.New("not enough rows to train")
)
