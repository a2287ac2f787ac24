package key

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/utils/pointer"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	meiliv1alpha1 "github.com/meili-operator/meilisearch-operator/api/v1alpha1"
	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
	"github.com/meili-operator/meilisearch-operator/internal/conditions"
	"github.com/meili-operator/meilisearch-operator/internal/meiliclient"
	"github.com/meili-operator/meilisearch-operator/internal/secrets"
	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

const (
	serverName        = "movies-server"
	namespace         = "app"
	operatorNamespace = "meilisearch-operator"
	keyName           = "movies-search"
	secretName        = "movies-search-secret"
)

func newTestScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, meiliv1beta1.AddToScheme(scheme))
	require.NoError(t, meiliv1alpha1.AddToScheme(scheme))
	return scheme
}

func readyServer() *meiliv1beta1.Server {
	return &meiliv1beta1.Server{
		ObjectMeta: metav1.ObjectMeta{Name: serverName, Namespace: namespace},
		Status: meiliv1beta1.ServerStatus{
			Phase:    meiliv1beta1.ServerPhaseReady,
			Endpoint: "http://movies-server.app.svc.cluster.local:7700",
		},
	}
}

func masterKeyMirror() *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: operatorNamespace,
			Name:      consts.OperatorCopySecretName(namespace, serverName),
		},
		Data: map[string][]byte{consts.DataKeyMasterKey: []byte("master")},
	}
}

func testKey() *meiliv1alpha1.Key {
	return &meiliv1alpha1.Key{
		ObjectMeta: metav1.ObjectMeta{Name: keyName, Namespace: namespace},
		Spec: meiliv1alpha1.KeySpec{
			ServerRef:       serverName,
			Actions:         []string{"search"},
			Indexes:         []string{"movies"},
			SecretNamespace: namespace,
			SecretName:      secretName,
		},
	}
}

func newTestReconciler(t *testing.T, mock *meiliclient.MockClient, objs ...client.Object) (*Reconciler, client.Client) {
	scheme := newTestScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
	r := &Reconciler{
		Client:       c,
		scheme:       scheme,
		meiliFactory: meiliclient.MockFactory(mock),
		secrets:      secrets.NewSynchronizer(c, scheme),

		operatorNamespace: operatorNamespace,
		healthRequeue:     10 * time.Second,
		readyRequeue:      300 * time.Second,
	}
	return r, c
}

func keyRequest() ctrl.Request {
	return ctrl.Request{NamespacedName: types.NamespacedName{Namespace: namespace, Name: keyName}}
}

func getKey(t *testing.T, c client.Client) *meiliv1alpha1.Key {
	key := &meiliv1alpha1.Key{}
	require.NoError(t, c.Get(context.Background(),
		types.NamespacedName{Namespace: namespace, Name: keyName}, key))
	return key
}

func getSecretValue(t *testing.T, c client.Client) string {
	secret := &corev1.Secret{}
	require.NoError(t, c.Get(context.Background(),
		types.NamespacedName{Namespace: namespace, Name: secretName}, secret))
	return string(secret.Data[consts.DataKeyAPIKey])
}

func TestReconcileCreatesKeyAndSecret(t *testing.T) {
	mock := meiliclient.NewMockClient()
	r, c := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), testKey())

	_, err := r.Reconcile(context.Background(), keyRequest())
	require.NoError(t, err)

	got := getKey(t, c)
	assert.Equal(t, meiliv1alpha1.PhaseReady, got.Status.Phase)
	assert.NotEmpty(t, got.Status.UID)
	assert.True(t, got.Status.Owned)
	assert.Contains(t, got.Finalizers, consts.CleanupFinalizer)
	assert.True(t, conditions.IsReady(got))

	require.Len(t, mock.Keys, 1)
	assert.Equal(t, mock.Keys[0].Key, getSecretValue(t, c))
	assert.Equal(t, pointer.String(keyName), mock.Keys[0].Name)
}

func TestReconcileKeepsUIDStable(t *testing.T) {
	mock := meiliclient.NewMockClient()
	r, c := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), testKey())
	ctx := context.Background()

	_, err := r.Reconcile(ctx, keyRequest())
	require.NoError(t, err)
	uid := getKey(t, c).Status.UID

	_, err = r.Reconcile(ctx, keyRequest())
	require.NoError(t, err)

	assert.Equal(t, uid, getKey(t, c).Status.UID)
	assert.Len(t, mock.Keys, 1)
}

func TestReconcileBystanderSecret(t *testing.T) {
	mock := meiliclient.NewMockClient()
	mock.Keys = []meiliclient.Key{
		{UID: "uid-prefilled", Key: "value-prefilled", Actions: []string{"*"}, Indexes: []string{"*"}},
	}
	prefilled := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: secretName},
		Data:       map[string][]byte{consts.DataKeyAPIKey: []byte("value-prefilled")},
	}
	r, c := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), testKey(), prefilled)

	_, err := r.Reconcile(context.Background(), keyRequest())
	require.NoError(t, err)

	got := getKey(t, c)
	assert.Equal(t, "uid-prefilled", got.Status.UID)
	assert.False(t, got.Status.Owned)
	assert.Len(t, mock.Keys, 1)
}

func TestReconcileWaitsForServer(t *testing.T) {
	mock := meiliclient.NewMockClient()
	pendingServer := readyServer()
	pendingServer.Status.Phase = meiliv1beta1.ServerPhaseProvisioning
	r, c := newTestReconciler(t, mock, pendingServer, masterKeyMirror(), testKey())

	result, err := r.Reconcile(context.Background(), keyRequest())
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, result.RequeueAfter)
	assert.Empty(t, getKey(t, c).Status.UID)
	assert.Zero(t, mock.TotalCalls())
}

func TestCleanupDeletesOwnedKey(t *testing.T) {
	now := metav1.Now()
	mock := meiliclient.NewMockClient()
	mock.Keys = []meiliclient.Key{
		{UID: "uid-owned", Key: "value-owned", Actions: []string{"search"}, Indexes: []string{"movies"}},
	}
	key := testKey()
	key.DeletionTimestamp = &now
	key.Finalizers = []string{consts.CleanupFinalizer}
	key.Status = meiliv1alpha1.KeyStatus{UID: "uid-owned", Owned: true, Phase: meiliv1alpha1.PhaseReady}

	r, _ := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), key)

	_, err := r.Reconcile(context.Background(), keyRequest())
	require.NoError(t, err)

	assert.Empty(t, mock.Keys)
}

func TestCleanupSkipsBystanderKey(t *testing.T) {
	now := metav1.Now()
	mock := meiliclient.NewMockClient()
	mock.Keys = []meiliclient.Key{
		{UID: "uid-bystander", Key: "value", Actions: []string{"search"}, Indexes: []string{"movies"}},
	}
	key := testKey()
	key.DeletionTimestamp = &now
	key.Finalizers = []string{consts.CleanupFinalizer}
	key.Status = meiliv1alpha1.KeyStatus{UID: "uid-bystander", Owned: false, Phase: meiliv1alpha1.PhaseReady}

	r, _ := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), key)

	_, err := r.Reconcile(context.Background(), keyRequest())
	require.NoError(t, err)

	assert.Len(t, mock.Keys, 1)
	assert.Zero(t, mock.TotalCalls())
}

func TestCleanupSkipsRemoteWhenServerGone(t *testing.T) {
	now := metav1.Now()
	mock := meiliclient.NewMockClient()
	key := testKey()
	key.DeletionTimestamp = &now
	key.Finalizers = []string{consts.CleanupFinalizer}
	key.Status = meiliv1alpha1.KeyStatus{UID: "uid-owned", Owned: true, Phase: meiliv1alpha1.PhaseReady}

	// No Server object at all: the referenced server was already deleted.
	r, _ := newTestReconciler(t, mock, masterKeyMirror(), key)

	_, err := r.Reconcile(context.Background(), keyRequest())
	require.NoError(t, err)

	assert.Zero(t, mock.TotalCalls())
}
