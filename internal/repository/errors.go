// Package repository implements persistence for user records on top of
// database/sql. Sentinel errors defined here let higher layers map storage
// outcomes onto the domain error taxonomy without inspecting driver errors.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique email
// index. Handlers translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when no row matches a lookup, including a reset
// token whose row exists but whose expiry has passed. Callers must not
// distinguish the two cases.
var ErrNotFound = errors.New("user not found")
