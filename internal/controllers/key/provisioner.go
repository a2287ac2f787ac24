package key

import (
	"context"

	"github.com/opdev/subreconciler"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/pointer"
	ctrl "sigs.k8s.io/controller-runtime"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
	"github.com/meili-operator/meilisearch-operator/internal/conditions"
	"github.com/meili-operator/meilisearch-operator/internal/finalizer"
	"github.com/meili-operator/meilisearch-operator/internal/keys"
	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

// Provision resolves the remote key and stores its value for the Key object
func (r *Reconciler) Provision(ctx context.Context) (ctrl.Result, error) {
	// Do the actual reconcile work
	subrecs := []subreconciler.Fn{
		r.ensureCleanupFinalizer,
		r.markResolving,
		r.waitForServer,
		r.setupClient,
		r.resolveKey,
		r.updateKeyStatusReady,
	}
	for _, subrec := range subrecs {
		result, err := subrec(ctx)
		if subreconciler.ShouldHaltOrRequeue(result, err) {
			return subreconciler.Evaluate(result, err)
		}
	}

	return subreconciler.Evaluate(subreconciler.RequeueWithDelay(r.readyRequeue))
}

func (r *Reconciler) ensureCleanupFinalizer(ctx context.Context) (*ctrl.Result, error) {
	if _, err := finalizer.Ensure(ctx, r.Client, r.key); err != nil {
		r.logger.Error(err, "failed to add finalizer to the key")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) markResolving(ctx context.Context) (*ctrl.Result, error) {
	switch r.key.Status.Phase {
	case "", meiliv1alpha1.PhasePending:
		return r.setPhase(ctx, meiliv1alpha1.PhaseResolving)
	default:
		return subreconciler.ContinueReconciling()
	}
}

func (r *Reconciler) waitForServer(ctx context.Context) (*ctrl.Result, error) {
	if r.server == nil || r.server.Status.Phase != meiliv1beta1.ServerPhaseReady {
		r.logger.Info("referenced server not ready", "serverRef", r.key.Spec.ServerRef)
		conditions.SetReady(r.key, metav1.ConditionFalse, conditions.ReasonWaitingHealth,
			"waiting for the referenced Server to become ready")
		if result, err := r.updateStatus(ctx); subreconciler.ShouldHaltOrRequeue(result, err) {
			return result, err
		}
		return subreconciler.RequeueWithDelay(r.healthRequeue)
	}
	return subreconciler.ContinueReconciling()
}

// resolveKey finds or creates the remote key and keeps the target Secret in
// sync with its value. The uid recorded in status never changes silently:
// when the remote key disappears, re-resolution is surfaced as a warning.
func (r *Reconciler) resolveKey(ctx context.Context) (*ctrl.Result, error) {
	secretValue, err := r.secrets.ReadValue(ctx, r.secretLoc, consts.DataKeyAPIKey)
	if err != nil {
		r.logger.Error(err, "failed to read key secret")
		return subreconciler.Requeue()
	}

	var description *string
	if r.key.Spec.Description != "" {
		description = pointer.String(r.key.Spec.Description)
	}
	var expiresAt *string
	if r.key.Spec.ExpiresAt != "" {
		expiresAt = pointer.String(r.key.Spec.ExpiresAt)
	}

	resolution, err := keys.Resolve(ctx, r.meili, keys.Definition{
		Name:        pointer.String(r.key.KeyName()),
		Description: description,
		Actions:     r.key.Spec.Actions,
		Indexes:     r.key.Spec.Indexes,
		ExpiresAt:   expiresAt,
	}, secretValue, r.key.Status.UID)
	if err != nil {
		r.logger.Error(err, "failed to resolve key")
		return subreconciler.Requeue()
	}

	if resolution.PriorLost {
		conditions.SetWarning(r.key, conditions.ReasonKeyRecreated,
			"the previously resolved key was removed from the server; a replacement was resolved")
	}

	if err := r.secrets.EnsureValue(ctx, r.key, r.secretLoc, consts.DataKeyAPIKey, resolution.Value); err != nil {
		r.logger.Error(err, "failed to write key secret")
		return subreconciler.Requeue()
	}

	owned := resolution.Owned || r.key.Status.Owned
	if r.key.Status.UID != resolution.UID || r.key.Status.Owned != owned {
		r.key.Status.UID = resolution.UID
		r.key.Status.Owned = owned
		return r.updateStatus(ctx)
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) updateKeyStatusReady(ctx context.Context) (*ctrl.Result, error) {
	if r.key.Status.Phase != meiliv1alpha1.PhaseReady || !conditions.IsReady(r.key) {
		r.key.Status.Phase = meiliv1alpha1.PhaseReady
		conditions.SetReady(r.key, metav1.ConditionTrue, conditions.ReasonResolved,
			"remote key resolved")
		return r.updateStatus(ctx)
	}
	return subreconciler.ContinueReconciling()
}
