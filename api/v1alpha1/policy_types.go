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

// PolicySpec defines the desired state of Policy. Policies are accepted and
// stored but have no reconciliation effect yet.
type PolicySpec struct {
	// Name of the Server in the same namespace this policy applies to
	// +kubebuilder:validation:Required
	ServerRef string `json:"serverRef"`

	// Ensure a default search-only key exists for the Server
	// +kubebuilder:validation:Optional
	DefaultSearchKey bool `json:"defaultSearchKey,omitempty"`
}

// PolicyStatus defines the observed state of Policy
type PolicyStatus struct {
	// +kubebuilder:validation:Optional
	Phase Phase `json:"phase,omitempty"`

	// +kubebuilder:validation:Optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:printcolumn:name="SERVER",type=string,JSONPath=`.spec.serverRef`
//+kubebuilder:printcolumn:name="PHASE",type=string,JSONPath=`.status.phase`
//+kubebuilder:resource:shortName=mpol

// Policy is the Schema for the policies API
type Policy struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PolicySpec   `json:"spec,omitempty"`
	Status PolicyStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// PolicyList contains a list of Policy
type PolicyList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Policy `json:"items"`
}

func (p *Policy) GetServerRef() string {
	return p.Spec.ServerRef
}

func (p *Policy) GetConditions() *[]metav1.Condition {
	return &p.Status.Conditions
}

func init() {
	SchemeBuilder.Register(&Policy{}, &PolicyList{})
}
