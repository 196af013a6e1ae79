package rdb

import "time"

// ProviderRecord persistence model.
type ProviderRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	Name      string    `gorm:"type:text;not null"`
	Driver    string    `gorm:"type:text;not null"`
	Settings  string    `gorm:"type:text"` // JSON encoded map[string]string
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ProviderRecord) TableName() string { return "providers" }

// ClusterRecord persistence model.
type ClusterRecord struct {
	ID                string    `gorm:"primaryKey;type:text;not null"`
	Name              string    `gorm:"type:text;not null"`
	ProviderID        string    `gorm:"type:text;not null;index"`
	Existing          bool      `gorm:"not null"`
	ResourceGroup     string    `gorm:"type:text"`
	NodeCount         int32     `gorm:"not null"`
	NodeVMSize        string    `gorm:"type:text"`
	KubernetesVersion string    `gorm:"type:text"`
	Ingress           string    `gorm:"type:text"` // JSON encoded model.ClusterIngress
	CertManager       string    `gorm:"type:text"` // JSON encoded model.ClusterCertManager
	Settings          string    `gorm:"type:text"` // JSON encoded map[string]string
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (ClusterRecord) TableName() string { return "clusters" }

// RegistryRecord persistence model.
type RegistryRecord struct {
	ID            string    `gorm:"primaryKey;type:text;not null"`
	Name          string    `gorm:"type:text;not null"`
	ProviderID    string    `gorm:"type:text;not null;index"`
	ResourceGroup string    `gorm:"type:text"`
	Settings      string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (RegistryRecord) TableName() string { return "registries" }

// BackendRecord persistence model. Columns used for lookups are kept
// explicit, the remaining deployment parameters live in Spec.
type BackendRecord struct {
	ID         string    `gorm:"primaryKey;type:text;not null"`
	Name       string    `gorm:"type:text;not null"`
	ClusterID  string    `gorm:"type:text;not null;index"`
	RegistryID string    `gorm:"type:text"`
	Target     string    `gorm:"type:text;not null"`
	Host       string    `gorm:"type:text"`
	Spec       string    `gorm:"type:text"` // JSON encoded backendSpec
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (BackendRecord) TableName() string { return "backends" }

// FrontendRecord persistence model.
type FrontendRecord struct {
	ID            string    `gorm:"primaryKey;type:text;not null"`
	Name          string    `gorm:"type:text;not null"`
	ProviderID    string    `gorm:"type:text;not null"`
	RegistryID    string    `gorm:"type:text"`
	ResourceGroup string    `gorm:"type:text"`
	Image         string    `gorm:"type:text"` // JSON encoded model.BackendImage
	AppSettings   string    `gorm:"type:text"` // JSON encoded map[string]string
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (FrontendRecord) TableName() string { return "frontends" }

// RunRecord persistence model for pipeline history.
type RunRecord struct {
	ID          string    `gorm:"primaryKey;type:text;not null"`
	Environment string    `gorm:"type:text"`
	BackendID   string    `gorm:"type:text;index"`
	Status      string    `gorm:"type:text;not null"`
	Error       string    `gorm:"type:text"`
	Steps       string    `gorm:"type:text"` // JSON encoded []model.RunStep
	StartedAt   time.Time `gorm:"not null;index"`
	FinishedAt  time.Time
}

func (RunRecord) TableName() string { return "runs" }
