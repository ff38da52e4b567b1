package models

import "time"

// Assignment views served by the store.
const (
	ViewVisible  = "visible"
	ViewHidden   = "hidden"
	ViewSelected = "selected"
	ViewAll      = "all"
)

// StoreSnapshot is a read-only view of the store state for the rendering layer.
type StoreSnapshot struct {
	Configured            bool       `json:"configured"`
	BaseURL               string     `json:"baseUrl,omitempty"`
	MaskedKey             string     `json:"apiKey,omitempty"`
	ShowHiddenAssignments bool       `json:"showHiddenAssignments"`
	IsLoading             bool       `json:"isLoading"`
	Error                 *string    `json:"error"`
	Counts                StoreCount `json:"counts"`
	LastFetchedAt         *time.Time `json:"lastFetchedAt,omitempty"`
}

// StoreCount summarises the collection.
type StoreCount struct {
	Total      int `json:"total"`
	Visible    int `json:"visible"`
	Hidden     int `json:"hidden"`
	Selected   int `json:"selected"`
	DueInClass int `json:"dueInClass"`
}

// KVEntry is a row of the SQL-backed key-value store.
type KVEntry struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
