package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Icon          string        `json:"icon,omitempty"`
	Color         string        `json:"color,omitempty"`
	IsActive      bool          `json:"isActive"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

type Subcategory struct {
	ID             uuid.UUID      `json:"id"`
	CategoryID     uuid.UUID      `json:"categoryId"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	AuthorityTypes AuthorityTypes `json:"authorityTypes"`
	IsActive       bool           `json:"isActive"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// AuthorityTypes is the ordered role-name list a subcategory routes to.
type AuthorityTypes []string

func (t AuthorityTypes) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

func (t *AuthorityTypes) Scan(src interface{}) error {
	return scanJSON(src, (*[]string)(t))
}

type Authority struct {
	ID             uuid.UUID   `json:"id"`
	Level          string      `json:"level"`
	Description    string      `json:"description,omitempty"`
	Notes          string      `json:"notes,omitempty"`
	IsActive       bool        `json:"isActive"`
	CategoryIDs    []uuid.UUID `json:"categories"`
	SubcategoryIDs []uuid.UUID `json:"subcategories"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

type Jurisdiction struct {
	Area     string `json:"area,omitempty"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	State    string `json:"state,omitempty"`
}

func (j Jurisdiction) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *Jurisdiction) Scan(src interface{}) error {
	return scanJSON(src, j)
}

type Official struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Designation    string       `json:"designation"`
	Department     string       `json:"department"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	AuthorityID    *uuid.UUID   `json:"authorityId,omitempty"`
	Jurisdiction   Jurisdiction `json:"jurisdiction"`
	Categories     []uuid.UUID  `json:"categories"`
	IsActive       bool         `json:"isActive"`
	ResponseTime   float64      `json:"responseTime"`
	ResolutionRate float64      `json:"resolutionRate"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Request DTOs

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
	Icon        string `json:"icon" validate:"max=50"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	IsActive    *bool  `json:"isActive"`
}

type SubcategoryRequest struct {
	Name           string   `json:"name" validate:"required,min=2,max=100"`
	Description    string   `json:"description" validate:"max=500"`
	AuthorityTypes []string `json:"authorityTypes" validate:"max=20,dive,max=100"`
	IsActive       *bool    `json:"isActive"`
}

// AuthorityRequest accepts the legacy aliases authorityLevel and name for level.
type AuthorityRequest struct {
	Level          string   `json:"level" validate:"required,min=2,max=100"`
	AuthorityLevel string   `json:"authorityLevel,omitempty" validate:"-"`
	Name           string   `json:"name,omitempty" validate:"-"`
	Description    string   `json:"description" validate:"max=500"`
	Notes          string   `json:"notes" validate:"max=1000"`
	Categories     []string `json:"categories" validate:"required,min=1,dive,uuid"`
	Subcategories  []string `json:"subcategories" validate:"dive,uuid"`
	IsActive       *bool    `json:"isActive"`
}

// Normalize folds the legacy aliases into Level.
func (r *AuthorityRequest) Normalize() {
	if r.Level == "" {
		r.Level = r.AuthorityLevel
	}
	if r.Level == "" {
		r.Level = r.Name
	}
	r.AuthorityLevel = ""
	r.Name = ""
}

type OfficialRequest struct {
	Name         string       `json:"name" validate:"required,min=2,max=100"`
	Designation  string       `json:"designation" validate:"required,max=100"`
	Department   string       `json:"department" validate:"required,max=100"`
	Email        string       `json:"email" validate:"omitempty,email"`
	Phone        string       `json:"phone" validate:"omitempty,max=20"`
	AuthorityID  string       `json:"authorityId" validate:"omitempty,uuid"`
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	Categories   []string     `json:"categories" validate:"dive,uuid"`
	IsActive     *bool        `json:"isActive"`
}

type OfficialFilter struct {
	CategoryID *uuid.UUID
	Department string
	ActiveOnly bool
	Page       int
	Limit      int
}

type OfficialListResponse struct {
	Officials  []Official `json:"officials"`
	Pagination Pagination `json:"pagination"`
}
