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

package v1alpha1

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

var indexlog = logf.Log.WithName("index-resource")

func (i *Index) SetupWebhookWithManager(mgr ctrl.Manager) error {
	return ctrl.NewWebhookManagedBy(mgr).
		For(i).
		Complete()
}

//+kubebuilder:webhook:path=/validate-meili-operator-dev-v1alpha1-index,mutating=false,failurePolicy=fail,sideEffects=None,groups=meili.operator.dev,resources=indexes,verbs=update,versions=v1alpha1,name=vindex.kb.io,admissionReviewVersions=v1

var _ webhook.Validator = &Index{}

func (i *Index) ValidateCreate() error {
	return nil
}

func (i *Index) ValidateUpdate(old runtime.Object) error {
	indexlog.Info("validate update", "name", i.Name)

	oldIndex, ok := old.(*Index)
	if !ok {
		return fmt.Errorf("expected an Index but got a %T", old)
	}

	// Meilisearch forbids changing an index's primary key, and moving uid or
	// serverRef would orphan the remote index.
	if oldIndex.Spec.UID != i.Spec.UID ||
		oldIndex.Spec.PrimaryKey != i.Spec.PrimaryKey ||
		oldIndex.Spec.ServerRef != i.Spec.ServerRef {
		return fmt.Errorf(consts.IndexSpecImmutableErrMessage)
	}

	return nil
}

func (i *Index) ValidateDelete() error {
	return nil
}
