package postgres

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
)

// SQLSTATE classes meaning the server cannot serve queries at all.
var unavailableStates = []string{
	"08",  // connection_exception
	"53",  // insufficient_resources
	"57P", // admin_shutdown, crash_shutdown, cannot_connect_now
}

// Classify maps a driver error onto the application error taxonomy:
// anything that means "the database is unreachable" becomes CodeUnavailable,
// everything else CodeDatabase. AppErrors and nil pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	if IsConnectivity(err) {
		return apperror.NewUnavailable(err)
	}
	return apperror.NewQueryFailed(err)
}

// IsConnectivity reports whether err means the database could not be reached.
func IsConnectivity(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, prefix := range unavailableStates {
			if strings.HasPrefix(pgErr.Code, prefix) {
				return true
			}
		}
		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}
