package server

import (
	"context"

	"github.com/opdev/subreconciler"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
	"github.com/meili-operator/meilisearch-operator/internal/finalizer"
	"github.com/meili-operator/meilisearch-operator/internal/metrics"
	"github.com/meili-operator/meilisearch-operator/internal/secrets"
	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

// Cleanup tears down the Server and everything depending on it
func (r *Reconciler) Cleanup(ctx context.Context) (ctrl.Result, error) {
	// Do the actual reconcile work
	subrecs := []subreconciler.Fn{
		r.markDeleting,
		r.fastTeardownKeys,
		r.fastTeardownIndexes,
		r.removeOperatorCopy,
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
	return r.setPhase(ctx, meiliv1beta1.ServerPhaseDeleting)
}

// fastTeardownKeys removes every Key referencing this Server without a
// single remote call: the server's data dies with it, so deleting remote
// keys one by one would only slow the teardown down or wedge it entirely
// once the API stops answering.
func (r *Reconciler) fastTeardownKeys(ctx context.Context) (*ctrl.Result, error) {
	keyList := &meiliv1alpha1.KeyList{}
	if err := r.List(ctx, keyList, client.InNamespace(r.server.Namespace)); err != nil {
		r.logger.Error(err, "failed to list keys")
		return subreconciler.Requeue()
	}

	for i := range keyList.Items {
		if result, err := r.fastRemove(ctx, &keyList.Items[i]); subreconciler.ShouldHaltOrRequeue(result, err) {
			return result, err
		}
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) fastTeardownIndexes(ctx context.Context) (*ctrl.Result, error) {
	indexList := &meiliv1alpha1.IndexList{}
	if err := r.List(ctx, indexList, client.InNamespace(r.server.Namespace)); err != nil {
		r.logger.Error(err, "failed to list indexes")
		return subreconciler.Requeue()
	}

	for i := range indexList.Items {
		if result, err := r.fastRemove(ctx, &indexList.Items[i]); subreconciler.ShouldHaltOrRequeue(result, err) {
			return result, err
		}
	}
	return subreconciler.ContinueReconciling()
}

// dependent is any object that names the Server it belongs to.
type dependent interface {
	client.Object
	meiliv1alpha1.ServerReferencing
}

// fastRemove drops the cleanup finalizer and deletes the object in one pass.
// Objects referencing other servers are left alone.
func (r *Reconciler) fastRemove(ctx context.Context, obj dependent) (*ctrl.Result, error) {
	if obj.GetServerRef() != r.server.Name {
		return subreconciler.ContinueReconciling()
	}
	if _, err := finalizer.Release(ctx, r.Client, obj); err != nil {
		r.logger.Error(err, "failed to remove finalizer from dependent object",
			"name", obj.GetName())
		return subreconciler.Requeue()
	}
	if err := r.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
		r.logger.Error(err, "failed to delete dependent object", "name", obj.GetName())
		return subreconciler.Requeue()
	}
	metrics.FastTeardownsTotal.Inc()
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) removeOperatorCopy(ctx context.Context) (*ctrl.Result, error) {
	mirror := secrets.Location{
		Namespace: r.operatorNamespace,
		Name:      consts.OperatorCopySecretName(r.server.Namespace, r.server.Name),
	}
	if err := r.secrets.Delete(ctx, mirror); err != nil {
		r.logger.Error(err, "failed to delete operator copy secret")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) markTerminated(ctx context.Context) (*ctrl.Result, error) {
	return r.setPhase(ctx, meiliv1beta1.ServerPhaseTerminated)
}

func (r *Reconciler) removeCleanupFinalizer(ctx context.Context) (*ctrl.Result, error) {
	if _, err := finalizer.Release(ctx, r.Client, r.server); err != nil {
		r.logger.Error(err, "failed to remove finalizer from the server")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}
