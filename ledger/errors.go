package ledger

import "errors"

var (
	ErrNotFound     = errors.New("ledger: not found")
	ErrEmptyPrefix  = errors.New("ledger: empty prefix")
	ErrCorruptValue = errors.New("ledger: corrupt value encoding")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
