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

package server

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
	server    *meiliv1beta1.Server
	endpoint  string
	image     string
	masterKey string

	// configurations
	operatorNamespace string
	defaultImage      string
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
		defaultImage:      cfg.Meili.DefaultImage,
		healthRequeue:     time.Duration(cfg.HealthRequeueSeconds) * time.Second,
		readyRequeue:      time.Duration(cfg.ReadyRequeueSeconds) * time.Second,
	}
}

//+kubebuilder:rbac:groups=meili.operator.dev,resources=servers,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=meili.operator.dev,resources=servers/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=meili.operator.dev,resources=servers/finalizers,verbs=update
//+kubebuilder:rbac:groups=meili.operator.dev,resources=keys,verbs=get;list;watch;update;delete
//+kubebuilder:rbac:groups=meili.operator.dev,resources=indexes,verbs=get;list;watch;update;delete
//+kubebuilder:rbac:groups=apps,resources=statefulsets,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups="",resources=services;secrets,verbs=get;list;watch;create;update;patch;delete

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	r.logger = log.FromContext(ctx)
	r.server = &meiliv1beta1.Server{}

	// Fetch the object
	switch err := r.Get(ctx, req.NamespacedName, r.server); {
	case apierrors.IsNotFound(err):
		return subreconciler.Evaluate(subreconciler.DoNotRequeue())
	case err != nil:
		r.logger.Error(err, "failed to fetch object")
		return subreconciler.Evaluate(subreconciler.Requeue())
	}

	if r.server.ObjectMeta.DeletionTimestamp != nil {
		return r.Cleanup(ctx)
	}

	return r.Provision(ctx)
}

func (r *Reconciler) initVars(context.Context) (*ctrl.Result, error) {
	r.image = r.server.Spec.Image
	if r.image == "" {
		r.image = r.defaultImage
	}
	r.endpoint = common.Endpoint(r.server.Name, r.server.Namespace, common.ServerPort(r.server))
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) masterKeyLocations() (primary, mirror secrets.Location) {
	primary = secrets.Location{
		Namespace: r.server.Namespace,
		Name:      consts.MasterKeySecretName(r.server.Name),
	}
	mirror = secrets.Location{
		Namespace: r.operatorNamespace,
		Name:      consts.OperatorCopySecretName(r.server.Namespace, r.server.Name),
	}
	return primary, mirror
}

// updateStatus writes the Server status, requeueing quietly on optimistic
// lock conflicts.
func (r *Reconciler) updateStatus(ctx context.Context) (*ctrl.Result, error) {
	if err := r.Status().Update(ctx, r.server); err != nil {
		if strings.Contains(err.Error(), genericregistry.OptimisticLockErrorMsg) {
			r.logger.Info("re-queuing item due to optimistic locking on resource", "error", err.Error())
		} else {
			r.logger.Error(err, "failed to update server status")
		}
		return subreconciler.Requeue()
	}
	return subreconciler.ContinueReconciling()
}

func (r *Reconciler) setPhase(ctx context.Context, phase meiliv1beta1.ServerPhase) (*ctrl.Result, error) {
	if r.server.Status.Phase == phase {
		return subreconciler.ContinueReconciling()
	}
	r.server.Status.Phase = phase
	return r.updateStatus(ctx)
}
