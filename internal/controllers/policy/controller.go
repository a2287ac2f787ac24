package policy

import (
	ctrl "sigs.k8s.io/controller-runtime"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
)

// SetupWithManager sets up the controller with the Manager.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&meiliv1alpha1.Policy{}).
		Complete(r)
}
