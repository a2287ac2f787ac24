package key

import (
	"context"

	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
	"sigs.k8s.io/controller-runtime/pkg/source"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
	"github.com/meili-operator/meilisearch-operator/internal/predicates"
)

// SetupWithManager sets up the controller with the Manager.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&meiliv1alpha1.Key{}).
		Watches(
			&source.Kind{Type: &meiliv1beta1.Server{}},
			handler.EnqueueRequestsFromMapFunc(r.serverToKeys),
			builder.WithPredicates(predicates.NewServerLifecyclePredicate())).
		Complete(r)
}

func (r *Reconciler) serverToKeys(object client.Object) []reconcile.Request {
	server, ok := object.(*meiliv1beta1.Server)
	if !ok {
		return nil
	}

	keyList := &meiliv1alpha1.KeyList{}
	if err := r.List(context.Background(), keyList, client.InNamespace(server.Namespace)); err != nil {
		return nil
	}

	var requests []reconcile.Request
	for i := range keyList.Items {
		if keyList.Items[i].GetServerRef() != server.Name {
			continue
		}
		requests = append(requests, reconcile.Request{
			NamespacedName: types.NamespacedName{
				Namespace: keyList.Items[i].Namespace,
				Name:      keyList.Items[i].Name,
			},
		})
	}
	return requests
}
