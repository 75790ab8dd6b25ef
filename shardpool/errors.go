package shardpool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/aalemi-dev/shardkit/topology"
)

// Errors describing where in the shard lifecycle an operation failed.
// Errors returned by this package match the sentinel of the stage that failed
// with errors.Is. A *PoolUnavailableError caused by a failed creation also
// matches ErrPoolCreation.
var (
	// ErrConfigNotFound is returned when a target path, or a prefix of it, is absent
	// from the topology. No connection is attempted in that case.
	ErrConfigNotFound = topology.ErrConfigNotFound

	// ErrPoolCreation is returned when a shard's pool could not be established
	ErrPoolCreation = errors.New("pool creation failed")

	// ErrPoolUnavailable is returned when a target has no live pool
	ErrPoolUnavailable = errors.New("pool unavailable")

	// ErrExecution is returned when a statement failed on a shard
	ErrExecution = errors.New("statement execution failed")

	// ErrAcquireTimeout is returned when no pooled connection became free in time
	ErrAcquireTimeout = errors.New("connection acquisition timed out")

	// ErrRegistryClosed is returned by operations on a registry that has been closed
	ErrRegistryClosed = errors.New("registry closed")
)

// Errors describing the underlying cause reported by the database driver.
// Driver errors are translated to these by TranslateError.
var (
	// ErrConnectionFailed is returned when the shard cannot be reached
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrConnectionLost is returned when an established connection dropped
	ErrConnectionLost = errors.New("connection lost")

	// ErrTooManyConnections is returned when the server refuses more connections
	ErrTooManyConnections = errors.New("too many connections")

	// ErrInvalidPassword is returned for authentication failures
	ErrInvalidPassword = errors.New("invalid password")

	// ErrPermissionDenied is returned when the user lacks access to an object
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInsufficientPrivileges is returned when the user lacks a required privilege
	ErrInsufficientPrivileges = errors.New("insufficient privileges")

	// ErrDatabaseNotFound is returned when the configured schema doesn't exist
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrInvalidQuery is returned when the SQL text is malformed
	ErrInvalidQuery = errors.New("invalid query")

	// ErrTableNotFound is returned when a statement names a missing table
	ErrTableNotFound = errors.New("table not found")

	// ErrColumnNotFound is returned when a statement names a missing column
	ErrColumnNotFound = errors.New("column not found")

	// ErrDuplicateKey is returned when a write violates a unique constraint
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrForeignKey is returned when a write violates a foreign key constraint
	ErrForeignKey = errors.New("foreign key violation")

	// ErrNotNullViolation is returned when a write puts NULL into a NOT NULL column
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrCheckConstraintViolation is returned when a check constraint fails
	ErrCheckConstraintViolation = errors.New("check constraint violation")

	// ErrConstraintViolation is returned for other constraint violations
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrDataTooLong is returned when a value exceeds the column length
	ErrDataTooLong = errors.New("data too long for column")

	// ErrNumericOverflow is returned when a numeric value is out of range
	ErrNumericOverflow = errors.New("numeric value overflow")

	// ErrInvalidDataType is returned when a value cannot be converted to the column type
	ErrInvalidDataType = errors.New("invalid data type")

	// ErrDivisionByZero is returned for division by zero
	ErrDivisionByZero = errors.New("division by zero")

	// ErrInvalidJSON is returned when JSON data is malformed
	ErrInvalidJSON = errors.New("invalid JSON data")

	// ErrDeadlock is returned when the server aborted a transaction to break a deadlock
	ErrDeadlock = errors.New("deadlock detected")

	// ErrLockTimeout is returned when a row lock could not be acquired in time
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrStatementTimeout is returned when the server cancelled a long statement
	ErrStatementTimeout = errors.New("statement timeout")

	// ErrTransactionFailed is returned when a commit is not allowed or fails
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrDiskFull is returned when the server ran out of storage
	ErrDiskFull = errors.New("disk full")

	// ErrSystemError is returned for server-side failures with no better classification
	ErrSystemError = errors.New("system error")
)

// ConfigNotFoundError reports the deepest topology path that could not be resolved.
type ConfigNotFoundError = topology.ConfigNotFoundError

// PoolCreationError records why a shard's pool could not be created.
// It is stored in the registry until a later attempt for the same target succeeds.
type PoolCreationError struct {
	Target topology.Target
	Cause  error
}

func (e *PoolCreationError) Error() string {
	return fmt.Sprintf("create pool for [%s]: %v", e.Target, e.Cause)
}

func (e *PoolCreationError) Unwrap() []error {
	return []error{ErrPoolCreation, e.Cause}
}

// PoolUnavailableError is returned when execution is requested against a target
// whose pool was never created or failed to create. Cause holds the creation
// error in the latter case.
type PoolUnavailableError struct {
	Target topology.Target
	Cause  error
}

func (e *PoolUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no live pool for [%s]: %v", e.Target, e.Cause)
	}
	return fmt.Sprintf("no live pool for [%s]: pool was never created", e.Target)
}

func (e *PoolUnavailableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPoolUnavailable}
	}
	return []error{ErrPoolUnavailable, e.Cause}
}

// ExecutionError wraps a failure that happened while running a statement on one shard.
// Stage is one of "acquire", "execute", "fetch", "serialize", "commit" or "panic".
type ExecutionError struct {
	Target topology.Target
	Stage  string
	Cause  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute on [%s] (%s): %v", e.Target, e.Stage, e.Cause)
}

func (e *ExecutionError) Unwrap() []error {
	return []error{ErrExecution, e.Cause}
}

// TranslateError annotates a driver error with the matching cause sentinel from
// this package while keeping the original error in the chain. Errors that match
// no known pattern are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return fmt.Errorf("%w: %w", translateMySQLError(mysqlErr), err)
	}

	if sentinel := translateByErrorMessage(strings.ToLower(err.Error())); sentinel != nil {
		if errors.Is(err, sentinel) {
			return err
		}
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

// translateMySQLError maps MySQL/MariaDB server error numbers to cause sentinels.
func translateMySQLError(mysqlErr *mysql.MySQLError) error {
	switch mysqlErr.Number {
	case 1062, 1586, 1061: // ER_DUP_ENTRY, ER_DUP_ENTRY_WITH_KEY_NAME, ER_DUP_KEYNAME
		return ErrDuplicateKey
	case 1216, 1217, 1451, 1452, 1557, 1761: // foreign key family
		return ErrForeignKey
	case 1051, 1146: // ER_BAD_TABLE_ERROR, ER_NO_SUCH_TABLE
		return ErrTableNotFound
	case 1054, 1091: // ER_BAD_FIELD_ERROR, ER_CANT_DROP_FIELD_OR_KEY
		return ErrColumnNotFound
	case 1406: // ER_DATA_TOO_LONG
		return ErrDataTooLong
	case 1264: // ER_WARN_DATA_OUT_OF_RANGE
		return ErrNumericOverflow
	case 1048, 1364: // ER_BAD_NULL_ERROR, ER_NO_DEFAULT_FOR_FIELD
		return ErrNotNullViolation
	case 1690: // ER_DATA_OUT_OF_RANGE
		return ErrConstraintViolation
	case 3819, 4025: // check constraint (MySQL 8.0.16+, MariaDB 10.2+)
		return ErrCheckConstraintViolation
	case 1205: // ER_LOCK_WAIT_TIMEOUT
		return ErrLockTimeout
	case 1213, 1637: // ER_LOCK_DEADLOCK, ER_TOO_MANY_CONCURRENT_TRXS
		return ErrDeadlock
	case 1040: // ER_CON_COUNT_ERROR
		return ErrTooManyConnections
	case 1158, 1159, 1160, 1161, 2006, 2013, 2055: // network read/write, server gone/lost
		return ErrConnectionLost
	case 2002, 2003: // CR_CONNECTION_ERROR, CR_CONN_HOST_ERROR
		return ErrConnectionFailed
	case 1064, 1065, 1149: // ER_PARSE_ERROR, ER_EMPTY_QUERY, ER_SYNTAX_ERROR
		return ErrInvalidQuery
	case 1044, 1142, 1143: // db/table/column access denied
		return ErrPermissionDenied
	case 1045: // ER_ACCESS_DENIED_ERROR
		return ErrInvalidPassword
	case 1227: // ER_SPECIFIC_ACCESS_DENIED_ERROR
		return ErrInsufficientPrivileges
	case 1568, 1792: // commit not allowed, read-only transaction
		return ErrTransactionFailed
	case 1365: // ER_DIVISION_BY_ZERO
		return ErrDivisionByZero
	case 3140, 3141, 3143: // invalid JSON text/param/binary
		return ErrInvalidJSON
	case 1049, 1008: // ER_BAD_DB_ERROR, ER_DB_DROP_EXISTS
		return ErrDatabaseNotFound
	case 1021: // ER_DISK_FULL
		return ErrDiskFull
	case 1969: // ER_STATEMENT_TIMEOUT
		return ErrStatementTimeout
	case 1366, 1582: // wrong value for field, bad native function parameters
		return ErrInvalidDataType
	default:
		return ErrSystemError
	}
}

// translateByErrorMessage classifies errors that carry no server error number,
// such as dial failures. It returns nil when nothing matches.
func translateByErrorMessage(errMsg string) error {
	switch {
	case strings.Contains(errMsg, "connection refused"),
		strings.Contains(errMsg, "connection timed out"),
		strings.Contains(errMsg, "no such host"),
		strings.Contains(errMsg, "i/o timeout"):
		return ErrConnectionFailed
	case strings.Contains(errMsg, "connection reset"),
		strings.Contains(errMsg, "server has gone away"),
		strings.Contains(errMsg, "broken pipe"),
		strings.Contains(errMsg, "invalid connection"):
		return ErrConnectionLost
	case strings.Contains(errMsg, "too many connections"):
		return ErrTooManyConnections
	case strings.Contains(errMsg, "deadlock"),
		strings.Contains(errMsg, "try restarting transaction"):
		return ErrDeadlock
	case strings.Contains(errMsg, "lock wait timeout"):
		return ErrLockTimeout
	case strings.Contains(errMsg, "syntax error"):
		return ErrInvalidQuery
	case strings.Contains(errMsg, "no such table"),
		strings.Contains(errMsg, "table") && strings.Contains(errMsg, "doesn't exist"):
		return ErrTableNotFound
	case strings.Contains(errMsg, "no such column"),
		strings.Contains(errMsg, "unknown column"):
		return ErrColumnNotFound
	case strings.Contains(errMsg, "unknown database"):
		return ErrDatabaseNotFound
	case strings.Contains(errMsg, "duplicate entry"),
		strings.Contains(errMsg, "unique constraint failed"):
		return ErrDuplicateKey
	case strings.Contains(errMsg, "access denied"):
		return ErrPermissionDenied
	default:
		return nil
	}
}

// ErrorCategory groups cause sentinels by the kind of remediation they need.
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	CategoryConfiguration
	CategoryConnection
	CategoryQuery
	CategoryData
	CategoryConstraint
	CategoryPermission
	CategoryTransaction
	CategoryResource
	CategorySchema
	CategorySystem
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryConfiguration:
		return "configuration"
	case CategoryConnection:
		return "connection"
	case CategoryQuery:
		return "query"
	case CategoryData:
		return "data"
	case CategoryConstraint:
		return "constraint"
	case CategoryPermission:
		return "permission"
	case CategoryTransaction:
		return "transaction"
	case CategoryResource:
		return "resource"
	case CategorySchema:
		return "schema"
	case CategorySystem:
		return "system"
	default:
		return "unknown"
	}
}

// GetErrorCategory returns the category of err.
func GetErrorCategory(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrConfigNotFound):
		return CategoryConfiguration
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrConnectionLost),
		errors.Is(err, ErrTooManyConnections), errors.Is(err, ErrAcquireTimeout):
		return CategoryConnection
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrStatementTimeout):
		return CategoryQuery
	case errors.Is(err, ErrDataTooLong), errors.Is(err, ErrInvalidDataType), errors.Is(err, ErrInvalidJSON),
		errors.Is(err, ErrDivisionByZero), errors.Is(err, ErrNumericOverflow):
		return CategoryData
	case errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrForeignKey), errors.Is(err, ErrConstraintViolation),
		errors.Is(err, ErrCheckConstraintViolation), errors.Is(err, ErrNotNullViolation):
		return CategoryConstraint
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrInsufficientPrivileges), errors.Is(err, ErrInvalidPassword):
		return CategoryPermission
	case errors.Is(err, ErrTransactionFailed), errors.Is(err, ErrDeadlock):
		return CategoryTransaction
	case errors.Is(err, ErrDiskFull), errors.Is(err, ErrLockTimeout):
		return CategoryResource
	case errors.Is(err, ErrTableNotFound), errors.Is(err, ErrColumnNotFound), errors.Is(err, ErrDatabaseNotFound):
		return CategorySchema
	case errors.Is(err, ErrSystemError):
		return CategorySystem
	default:
		return CategoryUnknown
	}
}

// IsRetryable reports whether calling Ensure or re-running the statement later may succeed.
// Nothing in this package retries on its own.
func IsRetryable(err error) bool {
	retryableErrors := []error{
		ErrConnectionFailed,
		ErrConnectionLost,
		ErrTooManyConnections,
		ErrAcquireTimeout,
		ErrStatementTimeout,
		ErrDeadlock,
		ErrLockTimeout,
	}

	for _, retryableErr := range retryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}
	return false
}
