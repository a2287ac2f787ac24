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

package index

import (
	"context"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/opdev/subreconciler"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	genericregistry "k8s.io/apiserver/pkg/registry/generic/registry"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
	"github.com/meili-operator/meilisearch-operator/internal/config"
	"github.com/meili-operator/meilisearch-operator/internal/controllers/common"
	"github.com/meili-operator/meilisearch-operator/internal/meiliclient"
	"github.com/meili-operator/meilisearch-operator/internal/secrets"
	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

type Reconciler struct {
	client.Client
	scheme       *runtime.Scheme
	logger       logr.Logger
	meiliFactory meiliclient.Factory
	secrets      *secrets.Synchronizer

	// reconcile specific variables
	index          *meiliv1alpha1.Index
	server         *meiliv1beta1.Server
	meili          meiliclient.Client
	adminSecretLoc secrets.Location

	// configurations
	operatorNamespace string
	healthRequeue     time.Duration
	readyRequeue      time.Duration
}

func NewReconciler(mgr manager.Manager, cfg *config.Config, meiliFactory meiliclient.Factory) *Reconciler {
	return &Reconciler{
		Client:       mgr.GetClient(),
		scheme:       mgr.GetScheme(),
		meiliFactory: meiliFactory,
		secrets:      secrets.NewSynchronizer(mgr.GetClient(), mgr.GetScheme()),

		operatorNamespace: cfg.OperatorNamespace,
		healthRequeue:     time.Duration(cfg.HealthRequeueSeconds) * time.Second,
		readyRequeue:      time.Duration(cfg.ReadyRequeueSeconds) * time.Second,
	}
}

//+kubebuilder:rbac:groups=meili.operator.dev,resources=indexes,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=meili.operator.dev,resources=indexes/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=meili.operator.dev,resources=indexes/finalizers,verbs=update
//+kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch;create;update;patch;delete

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	r.logger = log.FromContext(ctx)
	r.index = &meiliv1alpha1.Index{}

	// Fetch the object
	switch err := r.Get(ctx, req.NamespacedName, r.index); {
	case apierrors.IsNotFound(err):
		return subreconciler.Evaluate(subreconciler.DoNotRequeue())
	case err != nil:
		r.logger.Error(err, "failed to fetch object")
		return subreconciler.Evaluate(subreconciler.Requeue())
	}

	server, err := common.GetServer(ctx, r.Client, r.index.Namespace, r.index.Spec.ServerRef)
	if err != nil {
		r.logger.Error(err, "failed to fetch server")
		return subreconciler.Evaluate(subreconciler.Requeue())
	}
	r.server = server

	if r.index.ObjectMeta.DeletionTimestamp != nil {
		return r.Cleanup(ctx)
	}

	return r.Provision(ctx)
}

// setupClient builds a Meilisearch client authenticated with the master key
// mirrored into the operator namespace.
func (r *Reconciler) setupClient(ctx context.Context) (*ctrl.Result, error) {
	mirror := secrets.Location{
		Namespace: r.operatorNamespace,
		Name:      consts.OperatorCopySecretName(r.server.Namespace, r.server.Name),
	}
	masterKey, err := r.secrets.ReadValue(ctx, mirror, consts.DataKeyMasterKey)
	if err != nil {
		r.logger.Error(err, "failed to read master key mirror")
		return subreconciler.Requeue()
	}
	if masterKey == "" {
		r.logger.Info("master key mirror not populated yet", "server", r.server.Name)
		return subreconciler.RequeueWithDelay(r.healthRequeue)
	}

	endpoint := r.server.Status.Endpoint
	if endpoint == "" {
		endpoint = common.Endpoint(r.server.Name, r.server.Namespace, common.ServerPort(r.server))
	}
	r.meili = r.meiliFactory(endpoint, masterKey)
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) updateStatus(ctx context.Context) (*ctrl.Result, error) {
	if err := r.Status().Update(ctx, r.index); err != nil {
		if strings.Contains(err.Error(), genericregistry.OptimisticLockErrorMsg) {
			r.logger.Info("re-queuing item due to optimistic locking on resource", "error", err.Error())
		} else {
			r.logger.Error(err, "failed to update index status")
		}
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) setPhase(ctx context.Context, phase meiliv1alpha1.Phase) (*ctrl.Result, error) {
	if r.index.Status.Phase == phase {
		return subreconciler.ContinueReconciling()
	}
	r.index.Status.Phase = phase
	return r.updateStatus(ctx)
}
