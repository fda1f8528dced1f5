package models

// QueryType labels catalog queries in logs, metrics and errors.
type QueryType string

const (
	QueryTypeCatalogRows   QueryType = "catalog_rows"
	QueryTypeCatalogCount  QueryType = "catalog_count"
	QueryTypeStoreList     QueryType = "store_list"
	QueryTypeStoreLocation QueryType = "store_location"
)
