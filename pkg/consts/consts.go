package consts

const (
	FinalizerPrefix  = "meili.operator.dev/"
	CleanupFinalizer = FinalizerPrefix + "cleanup"

	DataKeyMasterKey = "masterKey"
	DataKeyAPIKey    = "key"

	// Meilisearch key action covering every operation.
	ActionAll = "*"

	LabelApp = "app"

	DefaultImage = "getmeili/meilisearch:v1.6"
	DefaultPort  = 7700

	MasterKeyLength = 64

	ContainerName   = "meilisearch"
	DataVolumeName  = "data"
	DataMountPath   = "/meili_data"
	MasterKeyEnvVar = "MEILI_MASTER_KEY"

	KeySpecImmutableErrMessage   = "serverRef and secret target are immutable"
	IndexSpecImmutableErrMessage = "uid, primaryKey and serverRef are immutable"
	ActionsRequiredErrMessage    = "actions must not be empty"
	ExpiresAtFormatErrMessage    = "expiresAt must be a valid RFC3339 timestamp"
)

// MasterKeySecretName is the name of the master key Secret living next to the
// Server.
func MasterKeySecretName(serverName string) string {
	return serverName + "-meili-master"
}

// OperatorCopySecretName is the name of the operator-namespace mirror of a
// Server's master key Secret. The namespace is part of the name because
// Servers from different namespaces share the operator namespace.
func OperatorCopySecretName(serverNamespace, serverName string) string {
	return serverNamespace + "-" + serverName + "-meili-master"
}

// AdminKeyName is the deterministic Meilisearch key name for an Index's
// scoped admin key.
func AdminKeyName(indexUID string) string {
	return indexUID + "-admin"
}

// AdminKeySecretName is the default Secret name for an Index's admin key.
func AdminKeySecretName(indexUID string) string {
	return indexUID + "-admin-key"
}

// AdminKeyDescription matches keys provisioned by earlier operator versions
// so they are adopted rather than duplicated.
func AdminKeyDescription(indexUID string) string {
	return "Admin key for index " + indexUID
}
