// Package registry persists named deployment records across runs.
//
// Records are keyed by network and name. A strategy symbol maps to its current deployment and
// the superseded one is archived under types.ArchiveName(symbol).
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/sc1-labs/vaultops/types"
)

// ErrNotFound is returned by Get when no record exists under the requested name.
var ErrNotFound = errors.New("deployment not found")

// Registry stores deployment records of a single network.
type Registry interface {
	Get(ctx context.Context, name string) (types.DeploymentRecord, error)
	Save(ctx context.Context, record types.DeploymentRecord) error
	Exists(ctx context.Context, name string) (bool, error)
}

var validate = validator.New()

func validateRecord(record types.DeploymentRecord) error {
	if err := validate.Struct(record); err != nil {
		return fmt.Errorf("invalid deployment record %q: %w", record.Name, err)
	}

	return nil
}

// exists implements Exists on top of Get.
func exists(ctx context.Context, r Registry, name string) (bool, error) {
	_, err := r.Get(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
