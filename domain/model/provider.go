package model

import "time"

// Provider represents an infrastructure provider (currently only "aks").
type Provider struct {
	ID        string
	Name      string
	Driver    string            // e.g., "aks"
	Settings  map[string]string // driver specific, e.g. AZURE_SUBSCRIPTION_ID
	CreatedAt time.Time
	UpdatedAt time.Time
}
