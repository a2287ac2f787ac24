// Package finalizer implements the shared finalizer protocol. Every kind of
// this operator carries the same finalizer while external cleanup may still
// be pending; its absence is the precondition for physical deletion.
package finalizer

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

// Ensure adds the finalizer if absent. It must run before any external side
// effect, so a crash after remote creation still guarantees cleanup is
// attempted later. Returns true when the object was updated.
func Ensure(ctx context.Context, c client.Client, obj client.Object) (bool, error) {
	if !controllerutil.AddFinalizer(obj, consts.CleanupFinalizer) {
		return false, nil
	}
	if err := c.Update(ctx, obj); err != nil {
		return false, err
	}
	return true, nil
}

// Release removes the finalizer. Callers invoke it only after all external
// cleanup has completed or been explicitly skipped. Returns true when the
// object was updated.
func Release(ctx context.Context, c client.Client, obj client.Object) (bool, error) {
	if !controllerutil.RemoveFinalizer(obj, consts.CleanupFinalizer) {
		return false, nil
	}
	if err := c.Update(ctx, obj); err != nil {
		return false, err
	}
	return true, nil
}

// Present reports whether the finalizer is attached.
func Present(obj client.Object) bool {
	return controllerutil.ContainsFinalizer(obj, consts.CleanupFinalizer)
}
