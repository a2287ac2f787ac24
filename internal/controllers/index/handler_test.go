package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
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
	indexName         = "movies-index"
	indexUID          = "movies"
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

func testIndex() *meiliv1alpha1.Index {
	return &meiliv1alpha1.Index{
		ObjectMeta: metav1.ObjectMeta{Name: indexName, Namespace: namespace},
		Spec: meiliv1alpha1.IndexSpec{
			ServerRef:  serverName,
			UID:        indexUID,
			PrimaryKey: "id",
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

func indexRequest() ctrl.Request {
	return ctrl.Request{NamespacedName: types.NamespacedName{Namespace: namespace, Name: indexName}}
}

func getIndex(t *testing.T, c client.Client) *meiliv1alpha1.Index {
	index := &meiliv1alpha1.Index{}
	require.NoError(t, c.Get(context.Background(),
		types.NamespacedName{Namespace: namespace, Name: indexName}, index))
	return index
}

func TestReconcileCreatesIndexThenConverges(t *testing.T) {
	mock := meiliclient.NewMockClient()
	r, c := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), testIndex())
	ctx := context.Background()

	// First pass submits the create and requeues until the index is visible.
	result, err := r.Reconcile(ctx, indexRequest())
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, result.RequeueAfter)
	require.Len(t, mock.Indexes, 1)
	assert.Equal(t, indexUID, mock.Indexes[0].UID)
	require.NotNil(t, mock.Indexes[0].PrimaryKey)
	assert.Equal(t, "id", *mock.Indexes[0].PrimaryKey)

	// Second pass observes it and goes Ready.
	_, err = r.Reconcile(ctx, indexRequest())
	require.NoError(t, err)

	got := getIndex(t, c)
	assert.Equal(t, meiliv1alpha1.PhaseReady, got.Status.Phase)
	assert.Contains(t, got.Finalizers, consts.CleanupFinalizer)
	assert.True(t, conditions.IsReady(got))
	assert.Nil(t, meta.FindStatusCondition(got.Status.Conditions, conditions.TypeWarning))
}

func TestReconcileReportsPrimaryKeyDrift(t *testing.T) {
	mock := meiliclient.NewMockClient()
	mock.Indexes = []meiliclient.Index{
		{UID: indexUID, PrimaryKey: pointer.String("objectId")},
	}
	r, c := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), testIndex())

	_, err := r.Reconcile(context.Background(), indexRequest())
	require.NoError(t, err)

	got := getIndex(t, c)
	warning := meta.FindStatusCondition(got.Status.Conditions, conditions.TypeWarning)
	require.NotNil(t, warning)
	assert.Equal(t, conditions.ReasonPrimaryKeyDrift, warning.Reason)
	// Drift is reported, not fixed: the index still becomes Ready.
	assert.Equal(t, meiliv1alpha1.PhaseReady, got.Status.Phase)
	assert.Len(t, mock.Indexes, 1)
}

func TestReconcileResolvesAdminKey(t *testing.T) {
	mock := meiliclient.NewMockClient()
	mock.Indexes = []meiliclient.Index{{UID: indexUID, PrimaryKey: pointer.String("id")}}
	index := testIndex()
	index.Spec.AdminKey = &meiliv1alpha1.IndexAdminKeySpec{Create: true}
	r, c := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), index)
	ctx := context.Background()

	_, err := r.Reconcile(ctx, indexRequest())
	require.NoError(t, err)

	got := getIndex(t, c)
	require.NotNil(t, got.Status.AdminKey)
	assert.Equal(t, namespace, got.Status.AdminKey.SecretNamespace)
	assert.Equal(t, consts.AdminKeySecretName(indexUID), got.Status.AdminKey.SecretName)
	assert.True(t, got.Status.AdminKey.Owned)

	require.Len(t, mock.Keys, 1)
	assert.Equal(t, pointer.String(consts.AdminKeyName(indexUID)), mock.Keys[0].Name)
	assert.Equal(t, pointer.String(consts.AdminKeyDescription(indexUID)), mock.Keys[0].Description)
	assert.Equal(t, []string{consts.ActionAll}, mock.Keys[0].Actions)
	assert.Equal(t, []string{indexUID}, mock.Keys[0].Indexes)

	secret := &corev1.Secret{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{
		Namespace: namespace, Name: consts.AdminKeySecretName(indexUID)}, secret))
	assert.Equal(t, mock.Keys[0].Key, string(secret.Data[consts.DataKeyAPIKey]))
}

func TestReconcileAdoptsExistingAdminKey(t *testing.T) {
	mock := meiliclient.NewMockClient()
	mock.Indexes = []meiliclient.Index{{UID: indexUID, PrimaryKey: pointer.String("id")}}
	mock.Keys = []meiliclient.Key{
		{
			UID:         "uid-legacy-admin",
			Key:         "value-legacy-admin",
			Name:        pointer.String(consts.AdminKeyName(indexUID)),
			Description: pointer.String(consts.AdminKeyDescription(indexUID)),
			Actions:     []string{consts.ActionAll},
			Indexes:     []string{indexUID},
		},
	}
	index := testIndex()
	index.Spec.AdminKey = &meiliv1alpha1.IndexAdminKeySpec{Create: true}
	r, c := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), index)

	_, err := r.Reconcile(context.Background(), indexRequest())
	require.NoError(t, err)

	got := getIndex(t, c)
	require.NotNil(t, got.Status.AdminKey)
	assert.Equal(t, "uid-legacy-admin", got.Status.AdminKey.UID)
	assert.Len(t, mock.Keys, 1)
}

func TestCleanupDeleteOnFinalize(t *testing.T) {
	now := metav1.Now()
	mock := meiliclient.NewMockClient()
	mock.Indexes = []meiliclient.Index{{UID: indexUID}}
	index := testIndex()
	index.DeletionTimestamp = &now
	index.Finalizers = []string{consts.CleanupFinalizer}
	index.Spec.DeleteOnFinalize = true
	index.Status.Phase = meiliv1alpha1.PhaseReady

	r, _ := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), index)

	_, err := r.Reconcile(context.Background(), indexRequest())
	require.NoError(t, err)

	assert.Empty(t, mock.Indexes)
}

func TestCleanupKeepsIndexByDefault(t *testing.T) {
	now := metav1.Now()
	mock := meiliclient.NewMockClient()
	mock.Indexes = []meiliclient.Index{{UID: indexUID}}
	index := testIndex()
	index.DeletionTimestamp = &now
	index.Finalizers = []string{consts.CleanupFinalizer}
	index.Status.Phase = meiliv1alpha1.PhaseReady

	r, _ := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), index)

	_, err := r.Reconcile(context.Background(), indexRequest())
	require.NoError(t, err)

	assert.Len(t, mock.Indexes, 1)
}

func TestCleanupKeptIndexKeepsAdminKey(t *testing.T) {
	now := metav1.Now()
	mock := meiliclient.NewMockClient()
	mock.Indexes = []meiliclient.Index{{UID: indexUID}}
	mock.Keys = []meiliclient.Key{
		{
			UID:     "uid-admin",
			Key:     "value-admin",
			Name:    pointer.String(consts.AdminKeyName(indexUID)),
			Actions: []string{consts.ActionAll},
			Indexes: []string{indexUID},
		},
	}
	index := testIndex()
	index.DeletionTimestamp = &now
	index.Finalizers = []string{consts.CleanupFinalizer}
	index.Status = meiliv1alpha1.IndexStatus{
		Phase: meiliv1alpha1.PhaseReady,
		AdminKey: &meiliv1alpha1.AdminKeyReference{
			SecretNamespace: namespace,
			SecretName:      consts.AdminKeySecretName(indexUID),
			UID:             "uid-admin",
			Owned:           true,
		},
	}

	r, _ := newTestReconciler(t, mock, readyServer(), masterKeyMirror(), index)

	_, err := r.Reconcile(context.Background(), indexRequest())
	require.NoError(t, err)

	// The index is intentionally left behind, and so is the credential
	// scoped to it.
	assert.Len(t, mock.Indexes, 1)
	assert.Len(t, mock.Keys, 1)
	assert.Zero(t, mock.TotalCalls())
}

func TestCleanupSkipsRemoteWhenServerGone(t *testing.T) {
	now := metav1.Now()
	mock := meiliclient.NewMockClient()
	index := testIndex()
	index.DeletionTimestamp = &now
	index.Finalizers = []string{consts.CleanupFinalizer}
	index.Spec.DeleteOnFinalize = true
	index.Status = meiliv1alpha1.IndexStatus{
		Phase:    meiliv1alpha1.PhaseReady,
		AdminKey: &meiliv1alpha1.AdminKeyReference{
			SecretNamespace: namespace,
			SecretName:      consts.AdminKeySecretName(indexUID),
			UID:             "uid-admin",
			Owned:           true,
		},
	}

	r, _ := newTestReconciler(t, mock, masterKeyMirror(), index)

	_, err := r.Reconcile(context.Background(), indexRequest())
	require.NoError(t, err)

	assert.Zero(t, mock.TotalCalls())
}
