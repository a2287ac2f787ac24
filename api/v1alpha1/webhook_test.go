package v1alpha1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func validKey() *Key {
	return &Key{
		ObjectMeta: metav1.ObjectMeta{Name: "search-key", Namespace: "app"},
		Spec: KeySpec{
			ServerRef:       "movies-server",
			Actions:         []string{"search"},
			Indexes:         []string{"movies"},
			SecretNamespace: "app",
			SecretName:      "search-key",
		},
	}
}

func TestKeyValidateCreate(t *testing.T) {
	assert.NoError(t, validKey().ValidateCreate())
}

func TestKeyValidateCreateEmptyActions(t *testing.T) {
	key := validKey()
	key.Spec.Actions = nil
	assert.Error(t, key.ValidateCreate())
}

func TestKeyValidateCreateExpiresAt(t *testing.T) {
	key := validKey()
	key.Spec.ExpiresAt = "2030-01-01T00:00:00Z"
	assert.NoError(t, key.ValidateCreate())

	key.Spec.ExpiresAt = "tomorrow"
	assert.Error(t, key.ValidateCreate())
}

func TestKeyValidateUpdateImmutableFields(t *testing.T) {
	old := validKey()

	updated := validKey()
	updated.Spec.Description = "new description"
	assert.NoError(t, updated.ValidateUpdate(old))

	moved := validKey()
	moved.Spec.ServerRef = "other-server"
	assert.Error(t, moved.ValidateUpdate(old))

	retargeted := validKey()
	retargeted.Spec.SecretName = "elsewhere"
	assert.Error(t, retargeted.ValidateUpdate(old))
}

func validIndex() *Index {
	return &Index{
		ObjectMeta: metav1.ObjectMeta{Name: "movies-index", Namespace: "app"},
		Spec: IndexSpec{
			ServerRef:  "movies-server",
			UID:        "movies",
			PrimaryKey: "id",
		},
	}
}

func TestIndexValidateUpdateImmutableFields(t *testing.T) {
	old := validIndex()

	updated := validIndex()
	updated.Spec.DeleteOnFinalize = true
	assert.NoError(t, updated.ValidateUpdate(old))

	renamed := validIndex()
	renamed.Spec.UID = "series"
	assert.Error(t, renamed.ValidateUpdate(old))

	rekeyed := validIndex()
	rekeyed.Spec.PrimaryKey = "objectId"
	assert.Error(t, rekeyed.ValidateUpdate(old))

	moved := validIndex()
	moved.Spec.ServerRef = "other-server"
	assert.Error(t, moved.ValidateUpdate(old))
}

func TestKeyNameDefaultsToObjectName(t *testing.T) {
	key := validKey()
	assert.Equal(t, "search-key", key.KeyName())

	key.Spec.Name = "explicit"
	assert.Equal(t, "explicit", key.KeyName())
}
