/*
Copyright 2023.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package policy

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"github.com/opdev/subreconciler"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	genericregistry "k8s.io/apiserver/pkg/registry/generic/registry"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
	"github.com/meili-operator/meilisearch-operator/internal/conditions"
	"github.com/meili-operator/meilisearch-operator/internal/finalizer"
)

// Policies are accepted and stored only; nothing is pushed to the server
// yet. The controller still runs the full finalizer protocol so the kind
// behaves like the others once policies gain remote effect.
type Reconciler struct {
	client.Client
	scheme *runtime.Scheme
	logger logr.Logger

	// reconcile specific variables
	policy *meiliv1alpha1.Policy
}

func NewReconciler(mgr manager.Manager) *Reconciler {
	return &Reconciler{
		Client: mgr.GetClient(),
		scheme: mgr.GetScheme(),
	}
}

//+kubebuilder:rbac:groups=meili.operator.dev,resources=policies,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=meili.operator.dev,resources=policies/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=meili.operator.dev,resources=policies/finalizers,verbs=update

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	r.logger = log.FromContext(ctx)
	r.policy = &meiliv1alpha1.Policy{}

	// Fetch the object
	switch err := r.Get(ctx, req.NamespacedName, r.policy); {
	case apierrors.IsNotFound(err):
		return subreconciler.Evaluate(subreconciler.DoNotRequeue())
	case err != nil:
		r.logger.Error(err, "failed to fetch object")
		return subreconciler.Evaluate(subreconciler.Requeue())
	}

	if r.policy.ObjectMeta.DeletionTimestamp != nil {
		return r.Cleanup(ctx)
	}

	return r.Provision(ctx)
}

// Provision marks the Policy accepted
func (r *Reconciler) Provision(ctx context.Context) (ctrl.Result, error) {
	subrecs := []subreconciler.Fn{
		r.ensureCleanupFinalizer,
		r.markAccepted,
	}
	for _, subrec := range subrecs {
		result, err := subrec(ctx)
		if subreconciler.ShouldHaltOrRequeue(result, err) {
			return subreconciler.Evaluate(result, err)
		}
	}

	return subreconciler.Evaluate(subreconciler.DoNotRequeue())
}

// Cleanup releases the Policy; there is no remote state to clean.
func (r *Reconciler) Cleanup(ctx context.Context) (ctrl.Result, error) {
	if _, err := finalizer.Release(ctx, r.Client, r.policy); err != nil {
		r.logger.Error(err, "failed to remove finalizer from the policy")
		return subreconciler.Evaluate(subreconciler.Requeue())
	}
	return subreconciler.Evaluate(subreconciler.DoNotRequeue())
}

func (r *Reconciler) ensureCleanupFinalizer(ctx context.Context) (*ctrl.Result, error) {
	if _, err := finalizer.Ensure(ctx, r.Client, r.policy); err != nil {
		r.logger.Error(err, "failed to add finalizer to the policy")
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) markAccepted(ctx context.Context) (*ctrl.Result, error) {
	if r.policy.Status.Phase == meiliv1alpha1.PhaseAccepted && conditions.IsReady(r.policy) {
		return subreconciler.ContinueReconciling()
	}
	r.policy.Status.Phase = meiliv1alpha1.PhaseAccepted
	conditions.SetReady(r.policy, metav1.ConditionTrue, conditions.ReasonAccepted,
		"policy accepted")
	if err := r.Status().Update(ctx, r.policy); err != nil {
		if strings.Contains(err.Error(), genericregistry.OptimisticLockErrorMsg) {
			r.logger.Info("re-queuing item due to optimistic locking on resource", "error", err.Error())
		} else {
			r.logger.Error(err, "failed to update policy status")
		}
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}
