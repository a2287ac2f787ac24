package key

// This package contains the controller for resolving and cleaning Meilisearch API keys.
//
// handler.go is the entrypoint for the reconciliation logic. It decides to provision the required resources or to
// clean up the already provisioned resources. The key for this decision is the Key being reconciled.

// Overall provisioning flow:
//
// 1. Add the cleanup finalizer before anything touches the server
// 2. Wait for the referenced Server to become ready
// 3. Resolve the remote key: reuse the recorded uid or a matching Secret value,
//    adopt an equivalent existing key, or create a new one
// 4. Store the key value in the target Secret
// 5. Update the status with uid and ownership; a lost remote key is re-resolved
//    with a warning, never silently

// Overall cleanup flow:
//
// 1. Delete the remote key, but only when this Key owns it and the Server is still alive
// 2. Delete the Secret if it lives outside the Key's namespace
// 3. Remove the cleanup finalizer
