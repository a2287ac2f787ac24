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

// IndexAdminKeySpec asks for an admin key scoped to this index.
type IndexAdminKeySpec struct {
	// +kubebuilder:validation:Optional
	Create bool `json:"create,omitempty"`

	// Namespace to store the Secret in. Defaults to the Index's namespace.
	// +kubebuilder:validation:Optional
	SecretNamespace string `json:"secretNamespace,omitempty"`

	// Name for the Secret. Defaults to "<uid>-admin-key".
	// +kubebuilder:validation:Optional
	SecretName string `json:"secretName,omitempty"`
}

// IndexSpec defines the desired state of Index
type IndexSpec struct {
	// Name of the Server in the same namespace backing this index
	// +kubebuilder:validation:Required
	ServerRef string `json:"serverRef"`

	// Meilisearch index uid, unique per Server
	// +kubebuilder:validation:Required
	UID string `json:"uid"`

	// +kubebuilder:validation:Optional
	PrimaryKey string `json:"primaryKey,omitempty"`

	// Delete the remote index when the CR is deleted
	// +kubebuilder:validation:Optional
	// +kubebuilder:default=false
	DeleteOnFinalize bool `json:"deleteOnFinalize,omitempty"`

	// +kubebuilder:validation:Optional
	AdminKey *IndexAdminKeySpec `json:"adminKey,omitempty"`
}

// AdminKeyReference records the resolved admin key of an Index.
type AdminKeyReference struct {
	SecretNamespace string `json:"secretNamespace,omitempty"`
	SecretName      string `json:"secretName,omitempty"`
	// UID of the key on the Meilisearch server
	UID string `json:"uid,omitempty"`
	// Owned is true when this Index's reconciliation created or adopted the
	// key, making it responsible for remote cleanup.
	Owned bool `json:"owned,omitempty"`
}

// IndexStatus defines the observed state of Index
type IndexStatus struct {
	// +kubebuilder:validation:Optional
	Phase Phase `json:"phase,omitempty"`

	// +kubebuilder:validation:Optional
	AdminKey *AdminKeyReference `json:"adminKey,omitempty"`

	// +kubebuilder:validation:Optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:printcolumn:name="SERVER",type=string,JSONPath=`.spec.serverRef`
//+kubebuilder:printcolumn:name="UID",type=string,JSONPath=`.spec.uid`
//+kubebuilder:printcolumn:name="PHASE",type=string,JSONPath=`.status.phase`
//+kubebuilder:resource:shortName=midx

// Index is the Schema for the indexes API
type Index struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   IndexSpec   `json:"spec,omitempty"`
	Status IndexStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// IndexList contains a list of Index
type IndexList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Index `json:"items"`
}

func (i *Index) GetServerRef() string {
	return i.Spec.ServerRef
}

func (i *Index) GetConditions() *[]metav1.Condition {
	return &i.Status.Conditions
}

func init() {
	SchemeBuilder.Register(&Index{}, &IndexList{})
}
