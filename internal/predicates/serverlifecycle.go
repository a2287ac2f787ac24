package predicates

import (
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	"sigs.k8s.io/controller-runtime/pkg/event"

	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
)

// ServerLifecyclePredicate filters Server events for the Index and Key
// controllers, which only care about a Server starting deletion or changing
// phase. Periodic status refreshes of an unchanged Server would otherwise
// fan out into requeue storms across every dependent CR.
type ServerLifecyclePredicate struct{}

func NewServerLifecyclePredicate() ServerLifecyclePredicate {
	return ServerLifecyclePredicate{}
}

func (p ServerLifecyclePredicate) Create(e event.CreateEvent) bool {
	return true
}

func (p ServerLifecyclePredicate) Delete(e event.DeleteEvent) bool {
	return true
}

func (p ServerLifecyclePredicate) Update(e event.UpdateEvent) bool {
	oldServer, ok := e.ObjectOld.(*meiliv1beta1.Server)
	if !ok {
		return false
	}
	newServer, ok := e.ObjectNew.(*meiliv1beta1.Server)
	if !ok {
		return false
	}

	if (oldServer.GetDeletionTimestamp() == nil) != (newServer.GetDeletionTimestamp() == nil) {
		return true
	}
	if oldServer.Status.Phase != newServer.Status.Phase {
		return true
	}
	return !apiequality.Semantic.DeepEqual(oldServer.Spec, newServer.Spec)
}

func (p ServerLifecyclePredicate) Generic(e event.GenericEvent) bool {
	return true
}
