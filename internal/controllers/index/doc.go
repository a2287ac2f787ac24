package index

// This package contains the controller for resolving and cleaning Meilisearch indexes.
//
// controller.go just sets up the controller with the manager and ensures proper tracking of related resources.
// Server events flow in through a watch so index reconciles fire when their server becomes ready or goes away.
//
// handler.go is the entrypoint for the reconciliation logic. It decides to provision the required resources or to
// clean up the already provisioned resources. The key for this decision is the Index being reconciled.

// Overall provisioning flow:
//
// 1. Add the cleanup finalizer before anything touches the server
// 2. Wait for the referenced Server to become ready
// 3. Create the remote index if absent; creation is async, so requeue until it is visible
// 4. Report primary-key drift as a warning condition; an existing index's primary key is never changed
// 5. Resolve the scoped admin key when requested: reuse, adopt or create, then store it in a Secret
// 6. Update the status of the Index

// Overall cleanup flow:
//
// 1. When deleteOnFinalize is set, delete the owned admin key and then the remote index;
//    otherwise the index is intentionally left behind together with its admin key
// 2. Skip all remote calls when the Server is being deleted or already gone
// 3. Delete the admin key Secret if it lives outside the Index's namespace
// 4. Remove the cleanup finalizer
