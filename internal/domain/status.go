package domain

type AccountStatus string

const (
	AccountStatusSubmittedAndPendingApproval AccountStatus = "SUBMITTED_AND_PENDING_APPROVAL"
	AccountStatusApproved                    AccountStatus = "APPROVED"
	AccountStatusActive                      AccountStatus = "ACTIVE"
	AccountStatusTransferInProgress          AccountStatus = "TRANSFER_IN_PROGRESS"
	AccountStatusTransferOnHold              AccountStatus = "TRANSFER_ON_HOLD"
	AccountStatusClosed                      AccountStatus = "CLOSED"
	AccountStatusPreMatureClosure            AccountStatus = "PRE_MATURE_CLOSURE"
	AccountStatusMatured                     AccountStatus = "MATURED"
	AccountStatusWithdrawnByApplicant        AccountStatus = "WITHDRAWN_BY_APPLICANT"
	AccountStatusRejected                    AccountStatus = "REJECTED"
)

var allowedTransitions = map[AccountStatus][]AccountStatus{
	AccountStatusSubmittedAndPendingApproval: {
		AccountStatusApproved,
		AccountStatusRejected,
		AccountStatusWithdrawnByApplicant,
	},
	AccountStatusApproved: {
		AccountStatusActive,
		AccountStatusWithdrawnByApplicant,
	},
	AccountStatusActive: {
		AccountStatusClosed,
		AccountStatusPreMatureClosure,
		AccountStatusMatured,
		AccountStatusTransferInProgress,
		AccountStatusTransferOnHold,
	},
	AccountStatusTransferInProgress: {
		AccountStatusActive,
		AccountStatusTransferOnHold,
	},
	AccountStatusTransferOnHold: {
		AccountStatusActive,
		AccountStatusTransferInProgress,
	},
}

// CanTransition reports whether the status machine permits moving from one status
// to another.
func CanTransition(from, to AccountStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func (s AccountStatus) IsTerminal() bool {
	switch s {
	case AccountStatusClosed,
		AccountStatusPreMatureClosure,
		AccountStatusMatured,
		AccountStatusWithdrawnByApplicant,
		AccountStatusRejected:
		return true
	}
	return false
}

// AllowsTransactions reports whether new transactions may be appended while in this
// status. Closure-time postings are handled separately, atomically with the closing
// transition.
func (s AccountStatus) AllowsTransactions() bool {
	switch s {
	case AccountStatusActive, AccountStatusTransferInProgress, AccountStatusTransferOnHold:
		return true
	}
	return false
}
