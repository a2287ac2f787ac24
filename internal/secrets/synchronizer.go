package secrets

import (
	"context"
	"crypto/rand"
	"math/big"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

// Location identifies a Secret by namespace and name.
type Location struct {
	Namespace string
	Name      string
}

// Synchronizer reads and writes the Secrets this operator manages: master
// keys and their operator-namespace mirrors, and issued API keys. Secrets
// are only ever mutated by the controller owning them.
type Synchronizer struct {
	client client.Client
	scheme *runtime.Scheme
}

func NewSynchronizer(c client.Client, scheme *runtime.Scheme) *Synchronizer {
	return &Synchronizer{client: c, scheme: scheme}
}

// ReadValue returns the value under dataKey, or "" when the Secret or the
// field is absent.
func (s *Synchronizer) ReadValue(ctx context.Context, loc Location, dataKey string) (string, error) {
	secret := &corev1.Secret{}
	switch err := s.client.Get(ctx, types.NamespacedName{Namespace: loc.Namespace, Name: loc.Name}, secret); {
	case apierrors.IsNotFound(err):
		return "", nil
	case err != nil:
		return "", err
	}
	return string(secret.Data[dataKey]), nil
}

// EnsureValue makes sure the Secret at loc holds value under dataKey,
// creating the Secret or overwriting the field on mismatch. An owner
// reference is set only when the owner lives in the target namespace;
// cross-namespace mirrors cannot be garbage collected by ownership and are
// cleaned up explicitly.
func (s *Synchronizer) EnsureValue(ctx context.Context, owner client.Object, loc Location, dataKey, value string) error {
	desired := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: loc.Namespace,
			Name:      loc.Name,
		},
		Data: map[string][]byte{
			dataKey: []byte(value),
		},
	}
	sameNamespace := owner != nil && owner.GetNamespace() == loc.Namespace
	if sameNamespace {
		if err := ctrl.SetControllerReference(owner, desired, s.scheme); err != nil {
			return err
		}
	}

	existing := &corev1.Secret{}
	switch err := s.client.Get(ctx, types.NamespacedName{Namespace: loc.Namespace, Name: loc.Name}, existing); {
	case apierrors.IsNotFound(err):
		return s.client.Create(ctx, desired)
	case err != nil:
		return err
	}

	if string(existing.Data[dataKey]) == value &&
		(!sameNamespace || metav1.IsControlledBy(existing, owner)) {
		return nil
	}
	if existing.Data == nil {
		existing.Data = map[string][]byte{}
	}
	existing.Data[dataKey] = []byte(value)
	if sameNamespace && !metav1.IsControlledBy(existing, owner) {
		if err := ctrl.SetControllerReference(owner, existing, s.scheme); err != nil {
			return err
		}
	}
	return s.client.Update(ctx, existing)
}

// Delete removes the Secret at loc, tolerating its absence.
func (s *Synchronizer) Delete(ctx context.Context, loc Location) error {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: loc.Namespace,
			Name:      loc.Name,
		},
	}
	if err := s.client.Delete(ctx, secret); err != nil && !apierrors.IsNotFound(err) {
		return err
	}
	return nil
}

// EnsureMasterKeyPair keeps a Server's two master key replicas convergent:
// the Secret next to the Server (primary, owned by it) and the mirror in the
// operator namespace. The primary is the source of truth on divergence. A
// lost replica is restored from the surviving one; only when both are gone
// is a fresh key generated.
//
// Returns the effective key value and whether it was newly generated.
func (s *Synchronizer) EnsureMasterKeyPair(ctx context.Context, owner client.Object, primary, mirror Location) (string, bool, error) {
	primaryValue, err := s.ReadValue(ctx, primary, consts.DataKeyMasterKey)
	if err != nil {
		return "", false, err
	}
	mirrorValue, err := s.ReadValue(ctx, mirror, consts.DataKeyMasterKey)
	if err != nil {
		return "", false, err
	}

	value := primaryValue
	if value == "" {
		value = mirrorValue
	}
	generated := false
	if value == "" {
		value, err = GenerateMasterKey()
		if err != nil {
			return "", false, err
		}
		generated = true
	}

	if primaryValue != value {
		if err := s.EnsureValue(ctx, owner, primary, consts.DataKeyMasterKey, value); err != nil {
			return "", false, err
		}
	}
	if mirrorValue != value {
		if err := s.EnsureValue(ctx, nil, mirror, consts.DataKeyMasterKey, value); err != nil {
			return "", false, err
		}
	}
	return value, generated, nil
}

const masterKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateMasterKey returns a random 64-character alphanumeric key.
func GenerateMasterKey() (string, error) {
	buf := make([]byte, consts.MasterKeyLength)
	max := big.NewInt(int64(len(masterKeyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = masterKeyAlphabet[n.Int64()]
	}
	return string(buf), nil
}
