// Package conditions holds the status-condition helpers shared by all kinds.
// Each kind exposes its condition slice through the Object capability
// instead of inheriting from a common base type.
package conditions

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	TypeReady   = "Ready"
	TypeWarning = "Warning"

	ReasonReconciling     = "Reconciling"
	ReasonProvisioned     = "Provisioned"
	ReasonWaitingHealth   = "WaitingHealth"
	ReasonResolved        = "Resolved"
	ReasonAccepted        = "Accepted"
	ReasonDeleting        = "Deleting"
	ReasonInvalidSpec     = "InvalidSpec"
	ReasonPrimaryKeyDrift = "PrimaryKeyDrift"
	ReasonKeyRecreated    = "KeyRecreated"
	ReasonMasterKeyReset  = "MasterKeyRegenerated"
)

// Object is any resource carrying a conditions slice.
type Object interface {
	client.Object
	GetConditions() *[]metav1.Condition
}

// SetReady records the Ready condition with the given status.
func SetReady(obj Object, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(obj.GetConditions(), metav1.Condition{
		Type:               TypeReady,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: obj.GetGeneration(),
	})
}

// SetWarning records a non-fatal condition, e.g. a primary-key mismatch the
// controller will not act on.
func SetWarning(obj Object, reason, message string) {
	meta.SetStatusCondition(obj.GetConditions(), metav1.Condition{
		Type:               TypeWarning,
		Status:             metav1.ConditionTrue,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: obj.GetGeneration(),
	})
}

// ClearWarning removes the warning condition once the cause is gone.
func ClearWarning(obj Object) {
	meta.RemoveStatusCondition(obj.GetConditions(), TypeWarning)
}

// IsReady reports whether the Ready condition is currently true.
func IsReady(obj Object) bool {
	return meta.IsStatusConditionTrue(*obj.GetConditions(), TypeReady)
}
