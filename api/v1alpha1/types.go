package v1alpha1

// Phase tracks where an Index, Key or Policy is in its lifecycle.
type Phase string

const (
	PhasePending    Phase = "Pending"
	PhaseResolving  Phase = "Resolving"
	PhaseReady      Phase = "Ready"
	PhaseAccepted   Phase = "Accepted"
	PhaseDeleting   Phase = "Deleting"
	PhaseTerminated Phase = "Terminated"
)

// ServerReferencing is implemented by kinds that reference a Server in the
// same namespace. The server cleaner uses it to filter dependents during
// fast teardown, and the Server watch map functions use it for enqueueing.
type ServerReferencing interface {
	GetServerRef() string
}
