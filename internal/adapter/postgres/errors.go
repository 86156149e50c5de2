package postgres

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chronotrack-io/chronotrack/internal/domain"
)

// mapPgError translates PostgreSQL error codes into domain sentinels.
// Unrecognized errors pass through unchanged.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgerrcode.DuplicateDatabase:
		return domain.ErrDatabaseExists
	case pgErr.Code == pgerrcode.UniqueViolation:
		return domain.ErrConflict
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgErr.Code == pgerrcode.TooManyConnections,
		pgErr.Code == pgerrcode.CannotConnectNow:
		return domain.ErrProvisioningUnavailable
	}
	return err
}

// mapAdminError translates errors from the privileged admin connection. An
// unreachable server never produces a PgError, only a connect or network
// failure, so those fold into the provisioning-unavailable sentinel before
// the SQLSTATE mapping runs.
func mapAdminError(err error) error {
	if err == nil {
		return nil
	}
	if isUnreachable(err) {
		return fmt.Errorf("%w: %w", domain.ErrProvisioningUnavailable, err)
	}
	return mapPgError(err)
}

// isUnreachable reports whether err is a transport-level failure reaching the
// server rather than a response from it.
func isUnreachable(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isDuplicateDatabase reports whether err is the server telling us the
// database name is already taken.
func isDuplicateDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.DuplicateDatabase
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
