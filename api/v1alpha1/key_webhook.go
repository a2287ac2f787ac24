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
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

var keylog = logf.Log.WithName("key-resource")

func (k *Key) SetupWebhookWithManager(mgr ctrl.Manager) error {
	return ctrl.NewWebhookManagedBy(mgr).
		For(k).
		Complete()
}

//+kubebuilder:webhook:path=/validate-meili-operator-dev-v1alpha1-key,mutating=false,failurePolicy=fail,sideEffects=None,groups=meili.operator.dev,resources=keys,verbs=create;update,versions=v1alpha1,name=vkey.kb.io,admissionReviewVersions=v1

var _ webhook.Validator = &Key{}

func (k *Key) ValidateCreate() error {
	keylog.Info("validate create", "name", k.Name)
	return validateKeySpec(&k.Spec)
}

func (k *Key) ValidateUpdate(old runtime.Object) error {
	keylog.Info("validate update", "name", k.Name)

	oldKey, ok := old.(*Key)
	if !ok {
		return fmt.Errorf("expected a Key but got a %T", old)
	}

	// Changing the server or the secret target would strand the previously
	// issued key value; force a delete/recreate instead.
	if oldKey.Spec.ServerRef != k.Spec.ServerRef ||
		oldKey.Spec.SecretNamespace != k.Spec.SecretNamespace ||
		oldKey.Spec.SecretName != k.Spec.SecretName {
		return fmt.Errorf(consts.KeySpecImmutableErrMessage)
	}

	return validateKeySpec(&k.Spec)
}

func (k *Key) ValidateDelete() error {
	return nil
}

func validateKeySpec(spec *KeySpec) error {
	if len(spec.Actions) == 0 {
		return fmt.Errorf(consts.ActionsRequiredErrMessage)
	}
	if spec.ExpiresAt != "" {
		if _, err := time.Parse(time.RFC3339, spec.ExpiresAt); err != nil {
			return fmt.Errorf(consts.ExpiresAtFormatErrMessage)
		}
	}
	return nil
}
