package key

import (
	"context"
	"errors"

	"github.com/opdev/subreconciler"
	ctrl "sigs.k8s.io/controller-runtime"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
	"github.com/meili-operator/meilisearch-operator/internal/controllers/common"
	"github.com/meili-operator/meilisearch-operator/internal/finalizer"
	"github.com/meili-operator/meilisearch-operator/internal/meiliclient"
)

// Cleanup cleans up the provisioned resources for the Key object
func (r *Reconciler) Cleanup(ctx context.Context) (ctrl.Result, error) {
	// Do the actual reconcile work
	subrecs := []subreconciler.Fn{
		r.markDeleting,
		r.removeRemoteKey,
		r.removeForeignSecret,
		r.markTerminated,
		r.removeCleanupFinalizer,
	}
	for _, subrec := range subrecs {
		result, err := subrec(ctx)
		if subreconciler.ShouldHaltOrRequeue(result, err) {
			return subreconciler.Evaluate(result, err)
		}
	}

	return subreconciler.Evaluate(subreconciler.DoNotRequeue())
}

func (r *Reconciler) markDeleting(ctx context.Context) (*ctrl.Result, error) {
	return r.setPhase(ctx, meiliv1alpha1.PhaseDeleting)
}

// removeRemoteKey deletes the remote key only when this Key owns it. Keys
// that were merely read through a pre-populated Secret stay untouched. All
// remote calls are skipped when the Server is going away.
func (r *Reconciler) removeRemoteKey(ctx context.Context) (*ctrl.Result, error) {
	if !r.key.Status.Owned || r.key.Status.UID == "" {
		return subreconciler.ContinueReconciling()
	}
	if common.ServerGone(r.server) {
		return subreconciler.ContinueReconciling()
	}

	if result, err := r.setupClient(ctx); subreconciler.ShouldHaltOrRequeue(result, err) {
		return result, err
	}

	switch err := r.meili.DeleteKey(ctx, r.key.Status.UID); {
	case err == nil, errors.Is(err, meiliclient.ErrNotFound):
		return subreconciler.ContinueReconciling()
	default:
		r.logger.Error(err, "failed to delete remote key", "uid", r.key.Status.UID)
		return subreconciler.Requeue()
	}
}

// removeForeignSecret deletes the key Secret when it lives in another
// namespace. Same-namespace Secrets are garbage collected through the owner
// reference.
func (r *Reconciler) removeForeignSecret(ctx context.Context) (*ctrl.Result, error) {
	if r.secretLoc.Namespace == r.key.Namespace {
		return subreconciler.ContinueReconciling()
	}
	if err := r.secrets.Delete(ctx, r.secretLoc); err != nil {
		r.logger.Error(err, "failed to delete key secret")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) markTerminated(ctx context.Context) (*ctrl.Result, error) {
	return r.setPhase(ctx, meiliv1alpha1.PhaseTerminated)
}

func (r *Reconciler) removeCleanupFinalizer(ctx context.Context) (*ctrl.Result, error) {
	if _, err := finalizer.Release(ctx, r.Client, r.key); err != nil {
		r.logger.Error(err, "failed to remove finalizer from the key")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}
