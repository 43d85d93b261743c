//go:build tinygo || !cgo

package rmaux

import (
	"errors"

	"github.com/soypat/raymarch"
)

func ui(root raymarch.Node, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
