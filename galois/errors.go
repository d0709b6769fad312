package galois

import "errors"

var (
	errDivByZero = errors.New("galois: division by zero")
	errInvZero   = errors.New("galois: zero element has no multiplicative inverse")
)
