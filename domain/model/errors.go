package model

import "errors"

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrClusterNotFound  = errors.New("cluster not found")
	ErrRegistryNotFound = errors.New("registry not found")
	ErrBackendNotFound  = errors.New("backend not found")
	ErrFrontendNotFound = errors.New("frontend not found")
	ErrRunNotFound      = errors.New("run not found")

	ErrClusterExisting  = errors.New("cluster is marked existing")
	ErrIngressIPTimeout = errors.New("timed out waiting for load balancer IP")
	ErrNotAvailable     = errors.New("deployment did not become available")
)
