package report

import "go.uber.org/atomic"

type OrchestratorErrors struct {
	AuthorizationFailures atomic.Uint64 `json:"authorization_failures"`
	PurchaseFailures      atomic.Uint64 `json:"purchase_failures"`
	PublishFailures       atomic.Uint64 `json:"publish_failures"`
	IndeterminateOutcomes atomic.Uint64 `json:"indeterminate_outcomes"`
}

type OrchestratorState struct {
	AttemptsInFlight   atomic.Int64  `json:"attempts_in_flight"`
	PurchasesConfirmed atomic.Uint64 `json:"purchases_confirmed"`
	PublishesConfirmed atomic.Uint64 `json:"publishes_confirmed"`
	TogglesConfirmed   atomic.Uint64 `json:"toggles_confirmed"`
	AttemptsRejected   atomic.Uint64 `json:"attempts_rejected"`
	RefreshesTriggered atomic.Uint64 `json:"refreshes_triggered"`
}

type OrchestratorReport struct {
	State  OrchestratorState  `json:"state"`
	Errors OrchestratorErrors `json:"errors"`
}
