package model

import "time"

// ForecastBlob holds the serialized forecast cache, written wholesale on each
// successful remote fetch and read back at startup.
type ForecastBlob struct {
	CacheKey  string    `gorm:"primaryKey;size:64"`
	Payload   string    `gorm:"not null"`
	FetchedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
