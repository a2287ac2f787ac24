package keys

import (
	"context"
	"errors"

	"github.com/meili-operator/meilisearch-operator/internal/adoption"
	"github.com/meili-operator/meilisearch-operator/internal/meiliclient"
	"github.com/meili-operator/meilisearch-operator/internal/metrics"
)

// Source says which resolution rule produced a key.
type Source string

const (
	// SourceStatus: the remote key recorded in status still exists and is
	// reused unchanged.
	SourceStatus Source = "Status"
	// SourceSecret: the target Secret already held a value that validates
	// against a remote key. A bystander read; the CR does not own the key.
	SourceSecret         Source = "Secret"
	SourceAdoptedExact   Source = "AdoptedExact"
	SourceAdoptedRelaxed Source = "AdoptedRelaxed"
	SourceCreated        Source = "Created"
)

// Definition is the desired key, independent of any CR kind so the Index
// controller can reuse the same resolution for scoped admin keys.
type Definition struct {
	Name        *string
	Description *string
	Actions     []string
	Indexes     []string
	// RFC3339; nil means the key never expires
	ExpiresAt *string
}

// Resolution is the resolved remote key.
type Resolution struct {
	Source Source
	UID    string
	Value  string
	// Owned is true when this resolution created or adopted the key, which
	// makes the caller responsible for remote cleanup on finalize.
	Owned bool
	// PriorLost is true when a previously recorded uid no longer exists
	// remotely and resolution had to run again. Callers surface this as a
	// warning condition; the rotation is never silent.
	PriorLost bool
}

// Resolve finds or creates a remote key for the desired definition.
//
// Resolution order (first success wins, the duplicate-avoidance contract):
//  1. a previously recorded uid, or a Secret value validating against a
//     remote key, is reused unchanged;
//  2. an exact remote match (name, description, actions, indexes, expiry);
//  3. a relaxed remote match (actions, indexes, expiry only);
//  4. a new key is created from the definition.
func Resolve(ctx context.Context, cli meiliclient.Client, desired Definition, secretValue, statusUID string) (*Resolution, error) {
	priorLost := false

	if statusUID != "" {
		switch key, err := cli.GetKey(ctx, statusUID); {
		case err == nil:
			return &Resolution{Source: SourceStatus, UID: key.UID, Value: key.Key}, nil
		case errors.Is(err, meiliclient.ErrNotFound):
			// The key this CR resolved before was removed behind our back.
			// Resolve again rather than leaving the CR stuck, but tell the
			// caller so it can surface a warning.
			priorLost = true
		default:
			return nil, err
		}
	}

	listing, err := cli.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	if secretValue != "" {
		for i := range listing {
			if listing[i].Key == secretValue {
				return &Resolution{
					Source:    SourceSecret,
					UID:       listing[i].UID,
					Value:     secretValue,
					PriorLost: priorLost,
				}, nil
			}
		}
	}

	result := adoption.Resolve(adoption.Desired{
		Name:        desired.Name,
		Description: desired.Description,
		Actions:     desired.Actions,
		Indexes:     desired.Indexes,
		ExpiresAt:   desired.ExpiresAt,
	}, listing)

	switch result.Outcome {
	case adoption.AdoptedExact:
		metrics.KeysAdoptedTotal.WithLabelValues("exact").Inc()
		return &Resolution{
			Source:    SourceAdoptedExact,
			UID:       result.Key.UID,
			Value:     result.Key.Key,
			Owned:     true,
			PriorLost: priorLost,
		}, nil
	case adoption.AdoptedRelaxed:
		metrics.KeysAdoptedTotal.WithLabelValues("relaxed").Inc()
		return &Resolution{
			Source:    SourceAdoptedRelaxed,
			UID:       result.Key.UID,
			Value:     result.Key.Key,
			Owned:     true,
			PriorLost: priorLost,
		}, nil
	}

	created, err := cli.CreateKey(ctx, meiliclient.KeyParams{
		Name:        desired.Name,
		Description: desired.Description,
		Actions:     desired.Actions,
		Indexes:     desired.Indexes,
		ExpiresAt:   desired.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &Resolution{
		Source:    SourceCreated,
		UID:       created.UID,
		Value:     created.Key,
		Owned:     true,
		PriorLost: priorLost,
	}, nil
}
