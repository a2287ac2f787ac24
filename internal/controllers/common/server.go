package common

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	meiliv1beta1 "github.com/meili-operator/meilisearch-operator/api/v1beta1"
	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

// Endpoint is the in-cluster URL of a Server's Meilisearch HTTP API.
func Endpoint(serverName, namespace string, port int32) string {
	return fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", serverName, namespace, port)
}

// ServerPort returns the effective API port of a Server.
func ServerPort(server *meiliv1beta1.Server) int32 {
	if server.Spec.Port != 0 {
		return server.Spec.Port
	}
	return consts.DefaultPort
}

// GetServer fetches the Server a dependent CR references. A missing Server is
// reported as (nil, nil) so callers can treat it like a Server in teardown.
func GetServer(ctx context.Context, c client.Client, namespace, serverRef string) (*meiliv1beta1.Server, error) {
	server := &meiliv1beta1.Server{}
	switch err := c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: serverRef}, server); {
	case apierrors.IsNotFound(err):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return server, nil
}

// ServerGone reports whether a dependent CR must skip remote cleanup: the
// Server is absent, being deleted, or already torn down. Remote calls against
// such a Server would only block deletion.
func ServerGone(server *meiliv1beta1.Server) bool {
	if server == nil {
		return true
	}
	if server.ObjectMeta.DeletionTimestamp != nil {
		return true
	}
	return server.Status.Phase == meiliv1beta1.ServerPhaseDeleting ||
		server.Status.Phase == meiliv1beta1.ServerPhaseTerminated
}
