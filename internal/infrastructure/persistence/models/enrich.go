package models

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ordersync/backend/internal/domain/enrich"
	"github.com/ordersync/backend/internal/domain/shared"
)

// EnrichmentTaskModel is the persistence model for enrichment tasks.
// Member line ids are stored as a JSON array; the set is small (the lines
// of one parent order) and never queried by element.
type EnrichmentTaskModel struct {
	BaseModel
	TenantID        uuid.UUID `gorm:"type:uuid;not null;index:idx_enrichment_tasks_tenant_group"`
	ParentGroupID   string    `gorm:"size:128;not null;index:idx_enrichment_tasks_tenant_group"`
	MemberLineIDs   string    `gorm:"type:text;not null"`
	State           string    `gorm:"size:16;not null;index"`
	RetryCount      int       `gorm:"not null"`
	MaxRetries      int       `gorm:"not null"`
	ResultPackageID *string   `gorm:"size:128"`
	LastError       string    `gorm:"type:text"`
}

// TableName specifies the table name
func (EnrichmentTaskModel) TableName() string {
	return "enrichment_tasks"
}

// ToDomain converts the model to a domain task
func (m *EnrichmentTaskModel) ToDomain() (*enrich.Task, error) {
	var memberIDs []uuid.UUID
	if m.MemberLineIDs != "" {
		if err := json.Unmarshal([]byte(m.MemberLineIDs), &memberIDs); err != nil {
			return nil, err
		}
	}
	return &enrich.Task{
		TenantEntity: shared.TenantEntity{
			BaseEntity: m.BaseModel.ToDomain(),
			TenantID:   m.TenantID,
		},
		ParentGroupID:   m.ParentGroupID,
		MemberLineIDs:   memberIDs,
		State:           enrich.TaskState(m.State),
		RetryCount:      m.RetryCount,
		MaxRetries:      m.MaxRetries,
		ResultPackageID: m.ResultPackageID,
		LastError:       m.LastError,
	}, nil
}

// FromDomain populates the model from a domain task
func (m *EnrichmentTaskModel) FromDomain(t *enrich.Task) error {
	encoded, err := json.Marshal(t.MemberLineIDs)
	if err != nil {
		return err
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	m.TenantID = t.TenantID
	m.ParentGroupID = t.ParentGroupID
	m.MemberLineIDs = string(encoded)
	m.State = string(t.State)
	m.RetryCount = t.RetryCount
	m.MaxRetries = t.MaxRetries
	m.ResultPackageID = t.ResultPackageID
	m.LastError = t.LastError
	return nil
}
