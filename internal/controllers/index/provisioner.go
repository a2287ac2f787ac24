package index

import (
	"context"
	"errors"

	"github.com/opdev/subreconciler"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/pointer"
	ctrl "sigs.k8s.io/controller-runtime"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
	"github.com/meili-operator/meilisearch-operator/internal/conditions"
	"github.com/meili-operator/meilisearch-operator/internal/finalizer"
	"github.com/meili-operator/meilisearch-operator/internal/keys"
	"github.com/meili-operator/meilisearch-operator/internal/meiliclient"
	"github.com/meili-operator/meilisearch-operator/internal/secrets"
	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

// Provision converges the remote index and its admin key for the Index object
func (r *Reconciler) Provision(ctx context.Context) (ctrl.Result, error) {
	// Do the actual reconcile work
	subrecs := []subreconciler.Fn{
		r.ensureCleanupFinalizer,
		r.markResolving,
		r.waitForServer,
		r.setupClient,
		r.ensureIndex,
		r.ensureAdminKey,
		r.updateIndexStatusReady,
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
	if _, err := finalizer.Ensure(ctx, r.Client, r.index); err != nil {
		r.logger.Error(err, "failed to add finalizer to the index")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) markResolving(ctx context.Context) (*ctrl.Result, error) {
	switch r.index.Status.Phase {
	case "", meiliv1alpha1.PhasePending:
		return r.setPhase(ctx, meiliv1alpha1.PhaseResolving)
	default:
		return subreconciler.ContinueReconciling()
	}
}

func (r *Reconciler) waitForServer(ctx context.Context) (*ctrl.Result, error) {
	if r.server == nil || r.server.Status.Phase != meiliv1beta1.ServerPhaseReady {
		r.logger.Info("referenced server not ready", "serverRef", r.index.Spec.ServerRef)
		conditions.SetReady(r.index, metav1.ConditionFalse, conditions.ReasonWaitingHealth,
			"waiting for the referenced Server to become ready")
		if result, err := r.updateStatus(ctx); subreconciler.ShouldHaltOrRequeue(result, err) {
			return result, err
		}
		return subreconciler.RequeueWithDelay(r.healthRequeue)
	}
	return subreconciler.ContinueReconciling()
}

// ensureIndex converges the remote index. Index creation is an async task on
// the Meilisearch side, so a freshly submitted create is followed by a
// requeue until the index becomes visible instead of polling the task queue.
func (r *Reconciler) ensureIndex(ctx context.Context) (*ctrl.Result, error) {
	uid := r.index.Spec.UID

	switch remote, err := r.meili.GetIndex(ctx, uid); {
	case err == nil:
		r.observePrimaryKey(remote)
		return subreconciler.ContinueReconciling()
	case errors.Is(err, meiliclient.ErrNotFound):
		var primaryKey *string
		if r.index.Spec.PrimaryKey != "" {
			primaryKey = pointer.String(r.index.Spec.PrimaryKey)
		}
		if err := r.meili.CreateIndex(ctx, uid, primaryKey); err != nil {
			r.logger.Error(err, "failed to create index", "uid", uid)
			return subreconciler.Requeue()
		}
		return subreconciler.RequeueWithDelay(r.healthRequeue)
	default:
		r.logger.Error(err, "failed to get index", "uid", uid)
		return subreconciler.Requeue()
	}
}

// observePrimaryKey surfaces a mismatch between the declared and remote
// primary key as a warning. The primary key cannot be changed on a non-empty
// index, so the controller reports instead of acting.
func (r *Reconciler) observePrimaryKey(remote *meiliclient.Index) {
	if r.index.Spec.PrimaryKey == "" {
		return
	}
	actual := ""
	if remote.PrimaryKey != nil {
		actual = *remote.PrimaryKey
	}
	if actual != r.index.Spec.PrimaryKey {
		conditions.SetWarning(r.index, conditions.ReasonPrimaryKeyDrift,
			"remote primary key "+actual+" does not match declared "+r.index.Spec.PrimaryKey)
	} else {
		conditions.ClearWarning(r.index)
	}
}

func (r *Reconciler) ensureAdminKey(ctx context.Context) (*ctrl.Result, error) {
	adminKey := r.index.Spec.AdminKey
	if adminKey == nil || !adminKey.Create {
		return subreconciler.ContinueReconciling()
	}

	uid := r.index.Spec.UID
	r.adminSecretLoc = secrets.Location{
		Namespace: adminKey.SecretNamespace,
		Name:      adminKey.SecretName,
	}
	if r.adminSecretLoc.Namespace == "" {
		r.adminSecretLoc.Namespace = r.index.Namespace
	}
	if r.adminSecretLoc.Name == "" {
		r.adminSecretLoc.Name = consts.AdminKeySecretName(uid)
	}

	secretValue, err := r.secrets.ReadValue(ctx, r.adminSecretLoc, consts.DataKeyAPIKey)
	if err != nil {
		r.logger.Error(err, "failed to read admin key secret")
		return subreconciler.Requeue()
	}

	statusUID := ""
	if r.index.Status.AdminKey != nil {
		statusUID = r.index.Status.AdminKey.UID
	}

	resolution, err := keys.Resolve(ctx, r.meili, keys.Definition{
		Name:        pointer.String(consts.AdminKeyName(uid)),
		Description: pointer.String(consts.AdminKeyDescription(uid)),
		Actions:     []string{consts.ActionAll},
		Indexes:     []string{uid},
	}, secretValue, statusUID)
	if err != nil {
		r.logger.Error(err, "failed to resolve admin key", "uid", uid)
		return subreconciler.Requeue()
	}

	if resolution.PriorLost {
		conditions.SetWarning(r.index, conditions.ReasonKeyRecreated,
			"the previously resolved admin key was removed from the server; a replacement was resolved")
	}

	if err := r.secrets.EnsureValue(ctx, r.index, r.adminSecretLoc, consts.DataKeyAPIKey, resolution.Value); err != nil {
		r.logger.Error(err, "failed to write admin key secret")
		return subreconciler.Requeue()
	}

	owned := resolution.Owned
	if !resolution.Owned && r.index.Status.AdminKey != nil && r.index.Status.AdminKey.Owned {
		// Re-resolution through status or secret must not demote ownership.
		owned = true
	}
	reference := &meiliv1alpha1.AdminKeyReference{
		SecretNamespace: r.adminSecretLoc.Namespace,
		SecretName:      r.adminSecretLoc.Name,
		UID:             resolution.UID,
		Owned:           owned,
	}
	if !apiequality.Semantic.DeepEqual(r.index.Status.AdminKey, reference) {
		r.index.Status.AdminKey = reference
		return r.updateStatus(ctx)
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) updateIndexStatusReady(ctx context.Context) (*ctrl.Result, error) {
	if r.index.Status.Phase != meiliv1alpha1.PhaseReady || !conditions.IsReady(r.index) {
		r.index.Status.Phase = meiliv1alpha1.PhaseReady
		conditions.SetReady(r.index, metav1.ConditionTrue, conditions.ReasonResolved,
			"remote index resolved")
		return r.updateStatus(ctx)
	}
	return subreconciler.ContinueReconciling()
}
