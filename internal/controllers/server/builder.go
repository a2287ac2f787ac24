package server

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/pointer"

	"github.com/meili-operator/meilisearch-operator/internal/controllers/common"
	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

func (r *Reconciler) selectorLabels() map[string]string {
	return map[string]string{consts.LabelApp: r.server.Name}
}

func (r *Reconciler) assembleService() *corev1.Service {
	serviceType := corev1.ServiceTypeClusterIP
	if r.server.Spec.ServiceType != "" {
		serviceType = corev1.ServiceType(r.server.Spec.ServiceType)
	}

	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: r.server.Namespace,
			Name:      r.server.Name,
			Labels:    r.selectorLabels(),
		},
		Spec: corev1.ServiceSpec{
			Type:     serviceType,
			Selector: r.selectorLabels(),
			Ports: []corev1.ServicePort{
				{
					Name:       "http",
					Port:       common.ServerPort(r.server),
					TargetPort: intstr.FromInt(int(common.ServerPort(r.server))),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

func (r *Reconciler) assembleStatefulSet() *appsv1.StatefulSet {
	port := common.ServerPort(r.server)
	replicas := r.server.Spec.Replicas
	if replicas == 0 {
		replicas = 1
	}

	container := corev1.Container{
		Name:  consts.ContainerName,
		Image: r.image,
		Args:  []string{fmt.Sprintf("--http-addr=0.0.0.0:%d", port)},
		Ports: []corev1.ContainerPort{
			{Name: "http", ContainerPort: port, Protocol: corev1.ProtocolTCP},
		},
		Env: []corev1.EnvVar{
			{
				Name: consts.MasterKeyEnvVar,
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{
							Name: consts.MasterKeySecretName(r.server.Name),
						},
						Key: consts.DataKeyMasterKey,
					},
				},
			},
		},
		ReadinessProbe: assembleProbe(port, 1, 10),
		LivenessProbe:  assembleProbe(port, 10, 30),
		VolumeMounts: []corev1.VolumeMount{
			{Name: consts.DataVolumeName, MountPath: consts.DataMountPath},
		},
	}

	statefulSet := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: r.server.Namespace,
			Name:      r.server.Name,
			Labels:    r.selectorLabels(),
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:    pointer.Int32(replicas),
			ServiceName: r.server.Name,
			Selector: &metav1.LabelSelector{
				MatchLabels: r.selectorLabels(),
			},
			// Data volumes go away with the Server; scale-down keeps them so
			// a scale-up doesn't reindex from scratch.
			PersistentVolumeClaimRetentionPolicy: &appsv1.StatefulSetPersistentVolumeClaimRetentionPolicy{
				WhenDeleted: appsv1.DeletePersistentVolumeClaimRetentionPolicyType,
				WhenScaled:  appsv1.RetainPersistentVolumeClaimRetentionPolicyType,
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: r.selectorLabels(),
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
				},
			},
		},
	}

	if r.server.Spec.Storage != "" {
		statefulSet.Spec.VolumeClaimTemplates = []corev1.PersistentVolumeClaim{
			{
				ObjectMeta: metav1.ObjectMeta{
					Name: consts.DataVolumeName,
				},
				Spec: corev1.PersistentVolumeClaimSpec{
					AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
					Resources: corev1.ResourceRequirements{
						Requests: corev1.ResourceList{
							corev1.ResourceStorage: resource.MustParse(r.server.Spec.Storage),
						},
					},
				},
			},
		}
	} else {
		statefulSet.Spec.Template.Spec.Volumes = []corev1.Volume{
			{
				Name: consts.DataVolumeName,
				VolumeSource: corev1.VolumeSource{
					EmptyDir: &corev1.EmptyDirVolumeSource{},
				},
			},
		}
	}

	return statefulSet
}

func assembleProbe(port, initialDelay, timeout int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: "/health",
				Port: intstr.FromInt(int(port)),
			},
		},
		InitialDelaySeconds: initialDelay,
		TimeoutSeconds:      timeout,
	}
}
