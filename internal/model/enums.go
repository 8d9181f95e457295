package model

// RunStatus is the lifecycle state of a pipeline run.
// RUNNING transitions to exactly one terminal status; terminal statuses
// are final.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFail    RunStatus = "FAIL"
	RunStatusError   RunStatus = "ERROR"
)

// Terminal reports whether the status is one of SUCCESS, FAIL, ERROR.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusFail || s == RunStatusError
}

// Accepted status vocabularies for the two datasets.
const (
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"

	PaymentStatusPaid   = "PAID"
	PaymentStatusRefund = "REFUND"
)

// AcceptedOrderStatuses is the full order-status vocabulary.
var AcceptedOrderStatuses = map[string]bool{
	OrderStatusPaid:      true,
	OrderStatusCancelled: true,
}

// AcceptedPaymentStatuses is the full payment-status vocabulary.
var AcceptedPaymentStatuses = map[string]bool{
	PaymentStatusPaid:   true,
	PaymentStatusRefund: true,
}

// CheckKind identifies one quality assertion. The set is fixed; every run
// evaluates all of them and records one TestResult each.
type CheckKind string

const (
	CheckOrderIDUnique         CheckKind = "orders_clean_order_id_unique"
	CheckOrderStatusAccepted   CheckKind = "orders_status_accepted"
	CheckPaymentStatusAccepted CheckKind = "payments_status_accepted"
	CheckPaymentOrderIDPresent CheckKind = "payments_order_id_not_null"
)

// AllChecks lists every CheckKind in reporting order.
var AllChecks = []CheckKind{
	CheckOrderIDUnique,
	CheckOrderStatusAccepted,
	CheckPaymentStatusAccepted,
	CheckPaymentOrderIDPresent,
}

// MetricKind identifies one reconciliation metric.
type MetricKind string

const (
	// MetricPaidAmountDaily compares summed PAID amounts per day under the
	// configured relative tolerance.
	MetricPaidAmountDaily MetricKind = "paid_amount_daily"

	// MetricPaidCountDaily compares PAID row counts per day; exact match
	// only, tolerance never applies.
	MetricPaidCountDaily MetricKind = "paid_count_daily"
)

// MismatchKind identifies one row-level mismatch type.
type MismatchKind string

// MismatchPaymentOrderMissing flags a PAID payment whose order reference
// does not exist among orders.
const MismatchPaymentOrderMissing MismatchKind = "payment_order_missing"
