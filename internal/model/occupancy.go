package model

import "time"

// OccupancySample is one recorded reading of the facility's occupancy,
// kept as training input for the external forecast pipeline.
type OccupancySample struct {
	ID            int64     `gorm:"autoIncrement;primaryKey" json:"-"`
	ObservedAt    time.Time `gorm:"not null;index" json:"observedAt"`
	FreeSpaces    int       `gorm:"not null" json:"freeSpaces"`
	TotalCapacity int       `gorm:"not null" json:"totalCapacity"`
	CurrentFill   int       `gorm:"not null" json:"currentFill"`
	FreePercent   float64   `gorm:"not null" json:"freePercent"`
}
