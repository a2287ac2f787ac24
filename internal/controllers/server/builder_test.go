package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

func builderReconciler(server *meiliv1beta1.Server) *Reconciler {
	return &Reconciler{
		server: server,
		image:  consts.DefaultImage,
	}
}

func testServer() *meiliv1beta1.Server {
	return &meiliv1beta1.Server{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "movies-server",
			Namespace: "app",
		},
		Spec: meiliv1beta1.ServerSpec{
			Replicas: 1,
			Storage:  "10Gi",
		},
	}
}

func TestAssembleService(t *testing.T) {
	r := builderReconciler(testServer())

	service := r.assembleService()

	assert.Equal(t, corev1.ServiceTypeClusterIP, service.Spec.Type)
	assert.Equal(t, map[string]string{consts.LabelApp: "movies-server"}, service.Spec.Selector)
	require.Len(t, service.Spec.Ports, 1)
	assert.Equal(t, int32(consts.DefaultPort), service.Spec.Ports[0].Port)
}

func TestAssembleServiceCustomTypeAndPort(t *testing.T) {
	server := testServer()
	server.Spec.ServiceType = "NodePort"
	server.Spec.Port = 8080
	r := builderReconciler(server)

	service := r.assembleService()

	assert.Equal(t, corev1.ServiceTypeNodePort, service.Spec.Type)
	assert.Equal(t, int32(8080), service.Spec.Ports[0].Port)
}

func TestAssembleStatefulSet(t *testing.T) {
	r := builderReconciler(testServer())

	statefulSet := r.assembleStatefulSet()

	assert.Equal(t, "movies-server", statefulSet.Spec.ServiceName)
	require.NotNil(t, statefulSet.Spec.Replicas)
	assert.Equal(t, int32(1), *statefulSet.Spec.Replicas)

	require.NotNil(t, statefulSet.Spec.PersistentVolumeClaimRetentionPolicy)
	assert.Equal(t, appsv1.DeletePersistentVolumeClaimRetentionPolicyType,
		statefulSet.Spec.PersistentVolumeClaimRetentionPolicy.WhenDeleted)
	assert.Equal(t, appsv1.RetainPersistentVolumeClaimRetentionPolicyType,
		statefulSet.Spec.PersistentVolumeClaimRetentionPolicy.WhenScaled)

	require.Len(t, statefulSet.Spec.Template.Spec.Containers, 1)
	container := statefulSet.Spec.Template.Spec.Containers[0]
	assert.Equal(t, consts.ContainerName, container.Name)
	assert.Equal(t, consts.DefaultImage, container.Image)
	assert.Contains(t, container.Args, "--http-addr=0.0.0.0:7700")

	require.Len(t, container.Env, 1)
	assert.Equal(t, consts.MasterKeyEnvVar, container.Env[0].Name)
	assert.Equal(t, consts.MasterKeySecretName("movies-server"),
		container.Env[0].ValueFrom.SecretKeyRef.Name)
	assert.Equal(t, consts.DataKeyMasterKey, container.Env[0].ValueFrom.SecretKeyRef.Key)

	require.NotNil(t, container.ReadinessProbe)
	assert.Equal(t, "/health", container.ReadinessProbe.HTTPGet.Path)
	require.NotNil(t, container.LivenessProbe)
	assert.Equal(t, "/health", container.LivenessProbe.HTTPGet.Path)

	require.Len(t, statefulSet.Spec.VolumeClaimTemplates, 1)
	storage := statefulSet.Spec.VolumeClaimTemplates[0].Spec.Resources.Requests[corev1.ResourceStorage]
	assert.Equal(t, "10Gi", storage.String())
	assert.Empty(t, statefulSet.Spec.Template.Spec.Volumes)
}

func TestAssembleStatefulSetEphemeral(t *testing.T) {
	server := testServer()
	server.Spec.Storage = ""
	r := builderReconciler(server)

	statefulSet := r.assembleStatefulSet()

	assert.Empty(t, statefulSet.Spec.VolumeClaimTemplates)
	require.Len(t, statefulSet.Spec.Template.Spec.Volumes, 1)
	assert.NotNil(t, statefulSet.Spec.Template.Spec.Volumes[0].EmptyDir)
}
