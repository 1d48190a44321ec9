package domain

import "errors"

var (
	// ErrDuplicate signals a unique-constraint violation on insert.
	ErrDuplicate = errors.New("record already exists")
	// ErrOutOfStock signals a product row that is missing or short on stock during commit.
	ErrOutOfStock = errors.New("product missing or out of stock")
)
