package models

import "encoding/json"

// Farm is the farm summary kept in the session as the active farm.
type Farm struct {
	ID       ID              `json:"id"`
	Name     Text            `json:"name,omitempty"`
	Location Text            `json:"location,omitempty"`
	Size     Text            `json:"size,omitempty"`
	Animals  json.RawMessage `json:"animals,omitempty"`
}

// User is the signed-in user as stored in the session.
type User struct {
	ID    ID     `json:"id"`
	Name  Text   `json:"name,omitempty"`
	Email Text   `json:"email,omitempty"`
	Farms []Farm `json:"farms,omitempty"`
}
