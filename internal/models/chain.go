// Package models holds the records persisted by the storage layer.
package models

import "time"

// Chain is a row of the chain reference table
type Chain struct {
	ID        string    `json:"id" db:"id"`                 // Numeric chain id as a string, e.g. "8453"
	CAIP2     string    `json:"caip2" db:"caip2"`           // Canonical CAIP-2 id, e.g. "eip155:8453"
	Name      string    `json:"name" db:"name"`             // Display name
	ShortName string    `json:"shortName" db:"short_name"` // Short name used in search boxes
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
