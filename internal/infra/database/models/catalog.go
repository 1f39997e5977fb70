package models

import (
	"time"
)

type DataModel struct {
	ID           string    `json:"uuid" gorm:"primaryKey;type:uuid"`
	Code         string    `json:"code" gorm:"type:text;not null;index"`
	Version      string    `json:"version" gorm:"type:text;not null"`
	Label        string    `json:"label" gorm:"type:text"`
	Longitudinal bool      `json:"longitudinal" gorm:"type:boolean;not null;default:false"`
	Released     bool      `json:"released" gorm:"type:boolean;not null;default:false;index"`
	Variables    string    `json:"variables" gorm:"type:jsonb"`
	Groups       string    `json:"groups" gorm:"type:jsonb"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Federation struct {
	Code         string    `json:"code" gorm:"primaryKey;type:text"`
	Title        string    `json:"title" gorm:"type:text"`
	URL          string    `json:"url" gorm:"type:text"`
	Description  string    `json:"description" gorm:"type:text"`
	Records      int       `json:"records" gorm:"type:integer;not null;default:0"`
	Institutions int       `json:"institutions" gorm:"type:integer;not null;default:0"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// FederationMember is the membership join row. The autoincrement id doubles
// as the insertion order of the member within its federation, which keeps
// returned member lists deterministic.
type FederationMember struct {
	ID             int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	FederationCode string     `json:"federationCode" gorm:"type:text;not null;index;index:federation_member_pair,unique"`
	Federation     Federation `json:"-" gorm:"foreignKey:FederationCode;references:Code;constraint:OnDelete:CASCADE;"`
	DataModelID    string     `json:"dataModelId" gorm:"type:uuid;not null;index;index:federation_member_pair,unique"`
	DataModel      DataModel  `json:"-" gorm:"foreignKey:DataModelID;references:ID;"`
}
