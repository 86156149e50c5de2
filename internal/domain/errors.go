// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates the request failed domain validation.
var ErrValidation = errors.New("validation failed")

// Provisioning and identity errors. These form the error taxonomy of the
// tenant lifecycle: callers branch on them with errors.Is.
var (
	// ErrProvisioningUnavailable indicates the privileged administrative
	// connection cannot be reached. Registration must fail closed; the
	// caller never falls back to a guessed database name.
	ErrProvisioningUnavailable = errors.New("provisioning unavailable")

	// ErrAllocationExhausted indicates the bounded retry budget for ordinal,
	// join-code, or organization-id generation was exceeded.
	ErrAllocationExhausted = errors.New("allocation retries exhausted")

	// ErrDatabaseExists indicates a CREATE DATABASE hit an existing database
	// with the same name. During allocation this is the collision signal
	// that triggers a retry with a fresh ordinal.
	ErrDatabaseExists = errors.New("database already exists")

	// ErrSchemaApplication indicates the tenant schema template could not be
	// applied in full to a freshly created database.
	ErrSchemaApplication = errors.New("schema application failed")

	// ErrAdminBootstrap indicates the bootstrap administrator could not be
	// written into a schema-complete tenant database.
	ErrAdminBootstrap = errors.New("admin bootstrap failed")

	// ErrDuplicateEmail indicates the administrator email is already
	// registered in the registry store.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrUnauthenticated indicates a missing, malformed, or expired
	// credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidIdentity indicates a syntactically valid credential whose
	// subject could not be resolved to an active principal in any store.
	ErrInvalidIdentity = errors.New("invalid identity")
)
