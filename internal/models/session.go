package models

// Ref is an id/name reference to a catalog entity.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionSnapshot holds the last campaign, group and location the operator
// picked. It is replaced wholesale.
type SessionSnapshot struct {
	Campaign *Ref `json:"campaign,omitempty"`
	Group    *Ref `json:"group,omitempty"`
	Location *Ref `json:"location,omitempty"`
}
