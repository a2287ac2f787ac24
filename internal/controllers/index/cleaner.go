package index

import (
	"context"
	"errors"

	"github.com/opdev/subreconciler"
	ctrl "sigs.k8s.io/controller-runtime"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
	"github.com/meili-operator/meilisearch-operator/internal/controllers/common"
	"github.com/meili-operator/meilisearch-operator/internal/finalizer"
	"github.com/meili-operator/meilisearch-operator/internal/meiliclient"
	"github.com/meili-operator/meilisearch-operator/internal/secrets"
)

// Cleanup cleans up the provisioned resources for the Index object
func (r *Reconciler) Cleanup(ctx context.Context) (ctrl.Result, error) {
	// Do the actual reconcile work
	subrecs := []subreconciler.Fn{
		r.markDeleting,
		r.teardownRemote,
		r.removeForeignAdminSecret,
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

// teardownRemote removes remote state this Index is responsible for. The
// index is kept unless deleteOnFinalize is set, and a kept index keeps its
// admin key too so consumers of the credential are not cut off. When the
// Server is gone or going away, the remote data dies with it and every
// call is skipped so teardown can never wedge on an unreachable API.
func (r *Reconciler) teardownRemote(ctx context.Context) (*ctrl.Result, error) {
	if !r.index.Spec.DeleteOnFinalize || common.ServerGone(r.server) {
		return subreconciler.ContinueReconciling()
	}

	if result, err := r.setupClient(ctx); subreconciler.ShouldHaltOrRequeue(result, err) {
		return result, err
	}

	if r.index.Status.AdminKey != nil && r.index.Status.AdminKey.Owned {
		switch err := r.meili.DeleteKey(ctx, r.index.Status.AdminKey.UID); {
		case err == nil, errors.Is(err, meiliclient.ErrNotFound):
		default:
			r.logger.Error(err, "failed to delete admin key", "uid", r.index.Status.AdminKey.UID)
			return subreconciler.Requeue()
		}
	}

	switch err := r.meili.DeleteIndex(ctx, r.index.Spec.UID); {
	case err == nil, errors.Is(err, meiliclient.ErrNotFound):
	default:
		r.logger.Error(err, "failed to delete index", "uid", r.index.Spec.UID)
		return subreconciler.Requeue()
	}

	return subreconciler.ContinueReconciling()
}

// removeForeignAdminSecret deletes the admin key Secret when it lives in
// another namespace. Same-namespace Secrets are garbage collected through
// the owner reference.
func (r *Reconciler) removeForeignAdminSecret(ctx context.Context) (*ctrl.Result, error) {
	reference := r.index.Status.AdminKey
	if reference == nil || reference.SecretNamespace == r.index.Namespace {
		return subreconciler.ContinueReconciling()
	}
	loc := secrets.Location{Namespace: reference.SecretNamespace, Name: reference.SecretName}
	if err := r.secrets.Delete(ctx, loc); err != nil {
		r.logger.Error(err, "failed to delete admin key secret")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) markTerminated(ctx context.Context) (*ctrl.Result, error) {
	return r.setPhase(ctx, meiliv1alpha1.PhaseTerminated)
}

func (r *Reconciler) removeCleanupFinalizer(ctx context.Context) (*ctrl.Result, error) {
	if _, err := finalizer.Release(ctx, r.Client, r.index); err != nil {
		r.logger.Error(err, "failed to remove finalizer from the index")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}
