package ledger

import "errors"

// ErrDecode marks a stored ledger string that could not be parsed.
var ErrDecode = errors.New("ledger decode failed")
