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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// KeySpec defines the desired state of Key
type KeySpec struct {
	// Name of the Server in the same namespace this key belongs to
	// +kubebuilder:validation:Required
	ServerRef string `json:"serverRef"`

	// Meilisearch key name. Defaults to the CR's own name.
	// +kubebuilder:validation:Optional
	Name string `json:"name,omitempty"`

	// +kubebuilder:validation:Optional
	Description string `json:"description,omitempty"`

	// Actions like ["search", "documents.add"], or ["*"] for all
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinItems=1
	Actions []string `json:"actions"`

	// Index restrictions, e.g. ["*"] or specific uids
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinItems=1
	Indexes []string `json:"indexes"`

	// RFC3339 expiration timestamp. Empty means the key never expires.
	// +kubebuilder:validation:Optional
	ExpiresAt string `json:"expiresAt,omitempty"`

	// Where to store the resolved key value
	// +kubebuilder:validation:Required
	SecretNamespace string `json:"secretNamespace"`
	// +kubebuilder:validation:Required
	SecretName string `json:"secretName"`
}

// KeyStatus defines the observed state of Key
type KeyStatus struct {
	// +kubebuilder:validation:Optional
	Phase Phase `json:"phase,omitempty"`

	// UID of the key on the Meilisearch server. Immutable once resolved.
	// +kubebuilder:validation:Optional
	UID string `json:"uid,omitempty"`

	// Owned is true when this Key's reconciliation created or adopted the
	// remote key, as opposed to a bystander read of a pre-populated Secret.
	// Only owned keys are deleted remotely on finalize.
	// +kubebuilder:validation:Optional
	Owned bool `json:"owned,omitempty"`

	// +kubebuilder:validation:Optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:printcolumn:name="SERVER",type=string,JSONPath=`.spec.serverRef`
//+kubebuilder:printcolumn:name="PHASE",type=string,JSONPath=`.status.phase`
//+kubebuilder:resource:shortName=mkey

// Key is the Schema for the keys API
type Key struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   KeySpec   `json:"spec,omitempty"`
	Status KeyStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// KeyList contains a list of Key
type KeyList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Key `json:"items"`
}

func (k *Key) GetServerRef() string {
	return k.Spec.ServerRef
}

func (k *Key) GetConditions() *[]metav1.Condition {
	return &k.Status.Conditions
}

// KeyName is the effective Meilisearch key name, defaulting to the CR name.
func (k *Key) KeyName() string {
	if k.Spec.Name != "" {
		return k.Spec.Name
	}
	return k.ObjectMeta.Name
}

func init() {
	SchemeBuilder.Register(&Key{}, &KeyList{})
}
