package models

import "time"

// Setting is one typed key/value pair. Type is one of string, number, boolean or json.
type Setting struct {
	Key         string    `json:"setting_key" gorm:"column:setting_key;primaryKey;type:varchar(100)"`
	Value       string    `json:"setting_value" gorm:"column:setting_value;type:text"`
	Type        string    `json:"setting_type" gorm:"column:setting_type;type:varchar(16);not null;default:string"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}
