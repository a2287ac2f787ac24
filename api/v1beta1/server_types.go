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

package v1beta1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ServerPhase tracks where a Server is in its lifecycle.
type ServerPhase string

const (
	ServerPhasePending       ServerPhase = "Pending"
	ServerPhaseProvisioning  ServerPhase = "Provisioning"
	ServerPhaseWaitingHealth ServerPhase = "WaitingHealth"
	ServerPhaseReady         ServerPhase = "Ready"
	ServerPhaseDeleting      ServerPhase = "Deleting"
	ServerPhaseTerminated    ServerPhase = "Terminated"
)

// SecretReference points at a Secret holding operator-managed key material.
type SecretReference struct {
	// +kubebuilder:validation:Required
	Namespace string `json:"namespace"`
	// +kubebuilder:validation:Required
	Name string `json:"name"`
}

// ServerSpec defines the desired state of Server
type ServerSpec struct {
	// Container image for Meilisearch
	// +kubebuilder:validation:Optional
	Image string `json:"image,omitempty"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:default=1
	Replicas int32 `json:"replicas,omitempty"`

	// Storage size for the data volume, e.g. "10Gi". Empty means ephemeral.
	// +kubebuilder:validation:Optional
	Storage string `json:"storage,omitempty"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:default=ClusterIP
	// +kubebuilder:validation:Enum=ClusterIP;NodePort;LoadBalancer
	ServiceType string `json:"serviceType,omitempty"`

	// Port for the Meilisearch HTTP API
	// +kubebuilder:validation:Optional
	// +kubebuilder:default=7700
	Port int32 `json:"port,omitempty"`
}

// ServerStatus defines the observed state of Server
type ServerStatus struct {
	// +kubebuilder:validation:Optional
	Phase ServerPhase `json:"phase,omitempty"`

	// In-cluster endpoint of the Meilisearch HTTP API
	// +kubebuilder:validation:Optional
	Endpoint string `json:"endpoint,omitempty"`

	// +kubebuilder:validation:Optional
	MasterKeySecret *SecretReference `json:"masterKeySecret,omitempty"`

	// Mirror of the master key Secret in the operator namespace
	// +kubebuilder:validation:Optional
	OperatorCopySecret *SecretReference `json:"operatorCopySecret,omitempty"`

	// +kubebuilder:validation:Optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:printcolumn:name="PHASE",type=string,JSONPath=`.status.phase`
//+kubebuilder:printcolumn:name="ENDPOINT",type=string,JSONPath=`.status.endpoint`
//+kubebuilder:resource:shortName=msrv

// Server is the Schema for the servers API
type Server struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ServerSpec   `json:"spec,omitempty"`
	Status ServerStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// ServerList contains a list of Server
type ServerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Server `json:"items"`
}

// GetConditions implements the conditions capability used by the shared
// status helpers.
func (s *Server) GetConditions() *[]metav1.Condition {
	return &s.Status.Conditions
}

func init() {
	SchemeBuilder.Register(&Server{}, &ServerList{})
}
