package server

import (
	"context"

	"github.com/opdev/subreconciler"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"

	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
	"github.com/meili-operator/meilisearch-operator/internal/conditions"
	"github.com/meili-operator/meilisearch-operator/internal/finalizer"
)

// Provision converges the workload and key material for the Server object
func (r *Reconciler) Provision(ctx context.Context) (ctrl.Result, error) {
	// Do the actual reconcile work
	subrecs := []subreconciler.Fn{
		r.ensureCleanupFinalizer,
		r.initVars,
		r.markProvisioning,
		r.ensureMasterKey,
		r.ensureService,
		r.ensureStatefulSet,
		r.checkHealth,
		r.updateServerStatusReady,
	}
	for _, subrec := range subrecs {
		result, err := subrec(ctx)
		if subreconciler.ShouldHaltOrRequeue(result, err) {
			return subreconciler.Evaluate(result, err)
		}
	}

	return subreconciler.Evaluate(subreconciler.RequeueWithDelay(r.readyRequeue))
}

// ensureCleanupFinalizer runs before anything with external effect, so a
// crash mid-provision can never leave key material without a guaranteed
// cleanup pass.
func (r *Reconciler) ensureCleanupFinalizer(ctx context.Context) (*ctrl.Result, error) {
	if _, err := finalizer.Ensure(ctx, r.Client, r.server); err != nil {
		r.logger.Error(err, "failed to add finalizer to the server")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) markProvisioning(ctx context.Context) (*ctrl.Result, error) {
	switch r.server.Status.Phase {
	case "", meiliv1beta1.ServerPhasePending:
		return r.setPhase(ctx, meiliv1beta1.ServerPhaseProvisioning)
	default:
		return subreconciler.ContinueReconciling()
	}
}

func (r *Reconciler) ensureMasterKey(ctx context.Context) (*ctrl.Result, error) {
	primary, mirror := r.masterKeyLocations()

	hadKey := r.server.Status.MasterKeySecret != nil
	value, generated, err := r.secrets.EnsureMasterKeyPair(ctx, r.server, primary, mirror)
	if err != nil {
		r.logger.Error(err, "failed to converge master key secrets")
		return subreconciler.Requeue()
	}
	r.masterKey = value

	// A key generated for a Server that already had one means both replicas
	// were lost and every previously issued credential is now invalid.
	if generated && hadKey {
		conditions.SetWarning(r.server, conditions.ReasonMasterKeyReset,
			"both master key secrets were lost; a new master key was generated")
		return r.updateStatus(ctx)
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) ensureService(ctx context.Context) (*ctrl.Result, error) {
	existing := &corev1.Service{}

	switch err := r.Get(ctx, types.NamespacedName{Namespace: r.server.Namespace, Name: r.server.Name}, existing); {
	case apierrors.IsNotFound(err):
		service := r.assembleService()
		if err := ctrl.SetControllerReference(r.server, service, r.scheme); err != nil {
			r.logger.Error(err, "failed to set owner reference on service")
			return subreconciler.Requeue()
		}
		if err := r.Create(ctx, service); err != nil {
			r.logger.Error(err, "failed to create service")
			return subreconciler.Requeue()
		}
	case err != nil:
		r.logger.Error(err, "failed to get service")
		return subreconciler.Requeue()
	default:
		desired := r.assembleService()
		if !apiequality.Semantic.DeepEqual(existing.Spec.Ports, desired.Spec.Ports) ||
			existing.Spec.Type != desired.Spec.Type ||
			!apiequality.Semantic.DeepEqual(existing.Spec.Selector, desired.Spec.Selector) {
			existing.Spec.Ports = desired.Spec.Ports
			existing.Spec.Type = desired.Spec.Type
			existing.Spec.Selector = desired.Spec.Selector
			if err := r.Update(ctx, existing); err != nil {
				r.logger.Error(err, "failed to update service")
				return subreconciler.Requeue()
			}
		}
	}

	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) ensureStatefulSet(ctx context.Context) (*ctrl.Result, error) {
	existing := &appsv1.StatefulSet{}

	switch err := r.Get(ctx, types.NamespacedName{Namespace: r.server.Namespace, Name: r.server.Name}, existing); {
	case apierrors.IsNotFound(err):
		statefulSet := r.assembleStatefulSet()
		if err := ctrl.SetControllerReference(r.server, statefulSet, r.scheme); err != nil {
			r.logger.Error(err, "failed to set owner reference on statefulset")
			return subreconciler.Requeue()
		}
		if err := r.Create(ctx, statefulSet); err != nil {
			r.logger.Error(err, "failed to create statefulset")
			return subreconciler.Requeue()
		}
	case err != nil:
		r.logger.Error(err, "failed to get statefulset")
		return subreconciler.Requeue()
	default:
		desired := r.assembleStatefulSet()
		// Selector and volumeClaimTemplates are immutable; only the mutable
		// parts are converged.
		if !apiequality.Semantic.DeepEqual(existing.Spec.Replicas, desired.Spec.Replicas) ||
			!apiequality.Semantic.DeepEqual(existing.Spec.Template.Spec.Containers, desired.Spec.Template.Spec.Containers) {
			existing.Spec.Replicas = desired.Spec.Replicas
			existing.Spec.Template = desired.Spec.Template
			if err := r.Update(ctx, existing); err != nil {
				r.logger.Error(err, "failed to update statefulset")
				return subreconciler.Requeue()
			}
		}
	}

	return subreconciler.ContinueReconciling()
}

// checkHealth probes the Meilisearch API through the service endpoint. The
// Server stays in WaitingHealth and is retried on a short interval until the
// first successful probe.
func (r *Reconciler) checkHealth(ctx context.Context) (*ctrl.Result, error) {
	cli := r.meiliFactory(r.endpoint, r.masterKey)
	if err := cli.Health(ctx); err != nil {
		r.logger.Info("server not healthy yet", "endpoint", r.endpoint, "error", err.Error())
		r.server.Status.Phase = meiliv1beta1.ServerPhaseWaitingHealth
		conditions.SetReady(r.server, metav1.ConditionFalse, conditions.ReasonWaitingHealth,
			"waiting for the Meilisearch API to answer health probes")
		if result, err := r.updateStatus(ctx); subreconciler.ShouldHaltOrRequeue(result, err) {
			return result, err
		}
		return subreconciler.RequeueWithDelay(r.healthRequeue)
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) updateServerStatusReady(ctx context.Context) (*ctrl.Result, error) {
	primary, mirror := r.masterKeyLocations()

	status := *r.server.Status.DeepCopy()
	status.Phase = meiliv1beta1.ServerPhaseReady
	status.Endpoint = r.endpoint
	status.MasterKeySecret = &meiliv1beta1.SecretReference{
		Namespace: primary.Namespace,
		Name:      primary.Name,
	}
	status.OperatorCopySecret = &meiliv1beta1.SecretReference{
		Namespace: mirror.Namespace,
		Name:      mirror.Name,
	}

	if !apiequality.Semantic.DeepEqual(r.server.Status, status) || !conditions.IsReady(r.server) {
		r.server.Status = status
		conditions.SetReady(r.server, metav1.ConditionTrue, conditions.ReasonProvisioned,
			"workload provisioned and the Meilisearch API is healthy")
		return r.updateStatus(ctx)
	}
	return subreconciler.ContinueReconciling()
}
