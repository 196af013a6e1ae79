package model

import "time"

// Frontend represents the Web App serving the browser UI.
type Frontend struct {
	ID            string
	Name          string // Web App name
	ProviderID    string
	RegistryID    string
	ResourceGroup string
	Image         BackendImage
	AppSettings   map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
