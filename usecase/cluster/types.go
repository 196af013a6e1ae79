package cluster

import (
	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

// Repos holds repositories needed for cluster use cases.
type Repos struct {
	Cluster  domain.ClusterRepository
	Registry domain.RegistryRepository
}

// UseCase wires repositories and ports needed for cluster use cases.
type UseCase struct {
	Repos        *Repos
	ClusterPort  model.ClusterPort
	RegistryPort model.RegistryPort
}
