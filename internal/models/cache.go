package models

import (
	"time"

	"gorm.io/datatypes"
)

// CacheEntry is one stored gateway response.
type CacheEntry struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	RequestType    string         `json:"request_type" gorm:"not null;size:64;index:idx_gateway_cache_lookup"`
	RequestHash    string         `json:"request_hash" gorm:"not null;size:64;index:idx_gateway_cache_lookup"`
	RawResponse    string         `json:"raw_response" gorm:"type:text"`
	ParsedResponse datatypes.JSON `json:"parsed_response" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"created_at" gorm:"index"`
}

func (CacheEntry) TableName() string {
	return "gateway_cache_entries"
}
