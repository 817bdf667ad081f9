package manager

import "errors"

// errIPNotAllowed is returned by Admit when a peer IP fails the IP
// filter, reputation, or subnet-limit check (spec.md §4.11).
var errIPNotAllowed = errors.New("ip not allowed")
