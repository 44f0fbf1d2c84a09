package models

// All returns every persistence model for migration, in dependency order.
func All() []any {
	return []any{
		&RawOrderRecordModel{},
		&RawProductRecordModel{},
		&SyncStateModel{},
		&CatalogEntryModel{},
		&CostEntryModel{},
		&OrderLineModel{},
		&EnrichmentTaskModel{},
	}
}
