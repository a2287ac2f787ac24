package index

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
		For(&meiliv1alpha1.Index{}).
		Watches(
			&source.Kind{Type: &meiliv1beta1.Server{}},
			handler.EnqueueRequestsFromMapFunc(r.serverToIndexes),
			builder.WithPredicates(predicates.NewServerLifecyclePredicate())).
		Complete(r)
}

func (r *Reconciler) serverToIndexes(object client.Object) []reconcile.Request {
	server, ok := object.(*meiliv1beta1.Server)
	if !ok {
		return nil
	}

	indexList := &meiliv1alpha1.IndexList{}
	if err := r.List(context.Background(), indexList, client.InNamespace(server.Namespace)); err != nil {
		return nil
	}

	var requests []reconcile.Request
	for i := range indexList.Items {
		if indexList.Items[i].GetServerRef() != server.Name {
			continue
		}
		requests = append(requests, reconcile.Request{
			NamespacedName: types.NamespacedName{
				Namespace: indexList.Items[i].Namespace,
				Name:      indexList.Items[i].Name,
			},
		})
	}
	return requests
}
