package models

// Office is an organizational unit. Remote responses identify it variably by
// code, numeric id, or display name; all three are kept.
type Office struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type Employee struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	OfficeCode string `json:"office_code,omitempty"`
	OfficeID   string `json:"office_id,omitempty"`
	OfficeName string `json:"office_name,omitempty"`
	Position   string `json:"position,omitempty"`
	IsActive   bool   `json:"is_active"`
}
