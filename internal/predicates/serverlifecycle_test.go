package predicates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/event"

	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
)

func baseServer() *meiliv1beta1.Server {
	return &meiliv1beta1.Server{
		ObjectMeta: metav1.ObjectMeta{Name: "movies-server", Namespace: "app"},
		Status:     meiliv1beta1.ServerStatus{Phase: meiliv1beta1.ServerPhaseReady},
	}
}

func TestUpdateIgnoresNoop(t *testing.T) {
	p := NewServerLifecyclePredicate()
	old := baseServer()
	updated := baseServer()
	updated.Status.Endpoint = "http://movies-server.app.svc.cluster.local:7700"

	assert.False(t, p.Update(event.UpdateEvent{ObjectOld: old, ObjectNew: updated}))
}

func TestUpdatePassesPhaseChange(t *testing.T) {
	p := NewServerLifecyclePredicate()
	old := baseServer()
	old.Status.Phase = meiliv1beta1.ServerPhaseWaitingHealth
	updated := baseServer()

	assert.True(t, p.Update(event.UpdateEvent{ObjectOld: old, ObjectNew: updated}))
}

func TestUpdatePassesDeletionStart(t *testing.T) {
	p := NewServerLifecyclePredicate()
	now := metav1.Now()
	old := baseServer()
	updated := baseServer()
	updated.DeletionTimestamp = &now

	assert.True(t, p.Update(event.UpdateEvent{ObjectOld: old, ObjectNew: updated}))
}

func TestUpdatePassesSpecChange(t *testing.T) {
	p := NewServerLifecyclePredicate()
	old := baseServer()
	updated := baseServer()
	updated.Spec.Port = 8080

	assert.True(t, p.Update(event.UpdateEvent{ObjectOld: old, ObjectNew: updated}))
}
