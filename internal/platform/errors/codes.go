// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInputInvalid     Code = "INPUT_INVALID"
	CodeCategoryDisabled Code = "CATEGORY_DISABLED"

	// Roster errors
	CodeRosterInvalid         Code = "ROSTER_INVALID"
	CodeTransferLimitExceeded Code = "TRANSFER_LIMIT_EXCEEDED"
	CodeEditingWindowClosed   Code = "EDITING_WINDOW_CLOSED"

	// Joker errors
	CodeJokerAlreadyUsed  Code = "JOKER_ALREADY_USED"
	CodeJokerNotAvailable Code = "JOKER_NOT_AVAILABLE"

	// Race lifecycle errors
	CodeRaceLockNotDue            Code = "RACE_LOCK_NOT_DUE"
	CodeRaceNotLocked             Code = "RACE_NOT_LOCKED"
	CodeRaceStatusDisallowsOp     Code = "RACE_STATUS_DISALLOWS_OPERATION"
	CodeRaceUnlockRequiresForce   Code = "RACE_UNLOCK_REQUIRES_FORCE"
	CodeRaceNotReadyForSettlement Code = "RACE_NOT_READY_FOR_SETTLEMENT"
	CodeResultInvalid             Code = "RESULT_INVALID"

	// Conflict errors
	CodeSnapshotConflict   Code = "SNAPSHOT_CONFLICT"
	CodeCostUpdateConflict Code = "COST_UPDATE_CONFLICT"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeRecordCorrupt Code = "RECORD_CORRUPT"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInputInvalid,
		CodeCategoryDisabled,
		CodeRosterInvalid,
		CodeResultInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeTransferLimitExceeded,
		CodeEditingWindowClosed,
		CodeJokerAlreadyUsed,
		CodeJokerNotAvailable,
		CodeRaceLockNotDue,
		CodeRaceNotLocked,
		CodeRaceStatusDisallowsOp,
		CodeRaceUnlockRequiresForce,
		CodeRaceNotReadyForSettlement:
		return codes.FailedPrecondition

	// Aborted - concurrent or conflicting state, resolved only by force
	case CodeSnapshotConflict,
		CodeCostUpdateConflict:
		return codes.Aborted

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeAlreadyExists:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}

// IsClientError reports whether the code describes a caller mistake rather
// than a server fault.
func (c Code) IsClientError() bool {
	switch c.GRPCCode() {
	case codes.Internal, codes.Unknown:
		return false
	default:
		return true
	}
}
