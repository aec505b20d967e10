// Copyright 2024 evolvedb.

package evolve

import (
	"os"

	"sigs.k8s.io/yaml"

	"github.com/evolvedb/evolve/internal/errors"
)

// ReadParams reads service parameters from the YAML file at the given
// path. Fields not present in the file keep their zero values.
func ReadParams(path string) (Params, error) {
	const op = errors.Op("evolve.ReadParams")

	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, errors.E(op, errors.CodeServerConfiguration, err)
	}
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, errors.E(op, errors.CodeServerConfiguration, err)
	}
	return p, nil
}
