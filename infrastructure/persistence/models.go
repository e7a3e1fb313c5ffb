package persistence

import "time"

// CaptureModel represents a stored acquisition in the database.
type CaptureModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Instrument string    `gorm:"column:instrument;size:255;not null;index"`
	Channel    int       `gorm:"column:channel;not null;index"`
	Samples    int       `gorm:"column:samples;not null"`
	Gain       float64   `gorm:"column:y_gain;not null"`
	Offset     float64   `gorm:"column:y_offset;not null"`
	XIncrement float64   `gorm:"column:x_increment;not null"`
	XOrigin    float64   `gorm:"column:x_origin;not null"`
	DataPath   string    `gorm:"column:data_path;size:1024"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name.
func (CaptureModel) TableName() string {
	return "captures"
}
