// Package tenantdb defines the tenant database naming convention and the
// provisioning state machine. The naming pattern doubles as the safety guard
// for destructive operations: only names matching it may ever be dropped.
package tenantdb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NamePrefix is the common prefix of all tenant database names.
const NamePrefix = "chronotrack_tenant_"

// namePattern matches exactly one well-formed tenant database name: the
// prefix followed by a positive integer ordinal with no leading zeros.
var namePattern = regexp.MustCompile(`^chronotrack_tenant_([1-9][0-9]*)$`)

// Name returns the database name for the given ordinal.
func Name(ordinal int) string {
	return NamePrefix + strconv.Itoa(ordinal)
}

// ParseOrdinal extracts the ordinal from a tenant database name.
// Returns false for names that do not match the naming convention.
func ParseOrdinal(name string) (int, bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ValidName reports whether name matches the tenant naming convention
// exactly. Destructive operations must refuse anything else.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// NextOrdinal returns max(ordinals)+1 over the tenant databases in names,
// or 1 when none match the naming convention. Ordinals are gap-tolerant:
// a deleted tenant's ordinal is never reused.
func NextOrdinal(names []string) int {
	max := 0
	for _, n := range names {
		if ord, ok := ParseOrdinal(strings.TrimSpace(n)); ok && ord > max {
			max = ord
		}
	}
	return max + 1
}

// State is a provisioning attempt's position in the lifecycle.
type State string

const (
	StateAllocated         State = "allocated"
	StateDatabaseCreated   State = "database_created"
	StateSchemaApplied     State = "schema_applied"
	StateAdminBootstrapped State = "admin_bootstrapped"
	StateReady             State = "ready"
	StateFailed            State = "failed"
)

// Result describes the outcome of one provisioning attempt.
type Result struct {
	DatabaseName string
	Ordinal      int
	State        State
}

func (r Result) String() string {
	return fmt.Sprintf("%s (%s)", r.DatabaseName, r.State)
}
