package server

// This package contains the controller for provisioning and tearing down
// Meilisearch servers.
//
// controller.go just sets up the controller with the manager and ensures proper tracking of owned resources.
//
// handler.go is the entrypoint for the reconciliation logic. It decides to provision the required resources or to
// clean up the already provisioned resources. The key for this decision is the Server being reconciled.
//
// If the Server has deletionTimestamp set, the controller will try to clean up.
// Otherwise, the controller will provision the required resources.

// Overall provisioning flow:
//
// 1. Add the cleanup finalizer before anything irreversible happens
// 2. Converge the master key pair: the Secret next to the Server and its operator-namespace mirror
// 3. Create or update the Service
// 4. Create or update the StatefulSet
// 5. Probe the Meilisearch health endpoint; stay in WaitingHealth until it answers
// 6. Update the status of the Server with endpoint, secret references and the Ready phase

// Overall cleanup flow:
//
// 1. Move the Server to the Deleting phase
// 2. Fast-teardown dependent Keys and Indexes: drop their finalizers and delete them, no remote calls
// 3. Remove the operator-namespace mirror of the master key
// 4. Move the Server to Terminated and remove the cleanup finalizer
//
// The StatefulSet, Service and master key Secret next to the Server are
// garbage collected through owner references.
