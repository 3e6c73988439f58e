package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeInputInvalid              = "INPUT_INVALID"
	CodeCategoryDisabled          = "CATEGORY_DISABLED"
	CodeRosterInvalid             = "ROSTER_INVALID"
	CodeTransferLimitExceeded     = "TRANSFER_LIMIT_EXCEEDED"
	CodeEditingWindowClosed       = "EDITING_WINDOW_CLOSED"
	CodeJokerAlreadyUsed          = "JOKER_ALREADY_USED"
	CodeJokerNotAvailable         = "JOKER_NOT_AVAILABLE"
	CodeRaceLockNotDue            = "RACE_LOCK_NOT_DUE"
	CodeRaceNotLocked             = "RACE_NOT_LOCKED"
	CodeRaceStatusDisallowsOp     = "RACE_STATUS_DISALLOWS_OPERATION"
	CodeRaceUnlockRequiresForce   = "RACE_UNLOCK_REQUIRES_FORCE"
	CodeRaceNotReadyForSettlement = "RACE_NOT_READY_FOR_SETTLEMENT"
	CodeResultInvalid             = "RESULT_INVALID"
	CodeSnapshotConflict          = "SNAPSHOT_CONFLICT"
	CodeCostUpdateConflict        = "COST_UPDATE_CONFLICT"
	CodeNotFound                  = "NOT_FOUND"
	CodeAlreadyExists             = "ALREADY_EXISTS"
	CodeRecordCorrupt             = "RECORD_CORRUPT"
)

var enUSCatalog = NewCatalog(BaseLocale, map[Code]string{
	CodeInputInvalid:     "The request is invalid: {{.Reason}}",
	CodeCategoryDisabled: "Category {{.Category}} is not enabled this season",

	CodeRosterInvalid:         "Your team does not meet the roster rules ({{.Count}} problems)",
	CodeTransferLimitExceeded: "This change needs {{.Needed}} transfers but only {{.Remaining}} remain before the next race",
	CodeEditingWindowClosed:   "Teams cannot be edited right now: {{.Reason}}",

	CodeJokerAlreadyUsed:  "You have already used your joker this season",
	CodeJokerNotAvailable: "The joker becomes available after the first race is settled",

	CodeRaceLockNotDue:            "Race {{.RaceID}} cannot be locked before {{.LockAt}}",
	CodeRaceNotLocked:             "Race {{.RaceID}} must be locked before results are accepted",
	CodeRaceStatusDisallowsOp:     "Race status {{.Status}} does not allow {{.Operation}}",
	CodeRaceUnlockRequiresForce:   "Race {{.RaceID}} has published results; unlocking requires force",
	CodeRaceNotReadyForSettlement: "Race {{.RaceID}} is not ready for settlement ({{.Status}})",
	CodeResultInvalid:             "Result for rider {{.RiderID}} is invalid: {{.Reason}}",

	CodeSnapshotConflict:   "The locked team for {{.UserID}} differs from the current team; re-lock with force to overwrite",
	CodeCostUpdateConflict: "Rider costs for race {{.RaceID}} were applied from different results; re-apply with force",

	CodeNotFound:      "The requested resource was not found",
	CodeAlreadyExists: "The resource already exists",
	CodeRecordCorrupt: "A stored record could not be read",
})
