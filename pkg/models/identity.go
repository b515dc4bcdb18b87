package models

// Identity holds the authenticated user context used during parameter
// resolution. Fields may be empty; resolution degrades tier by tier rather
// than failing when the richer sources are unavailable.
type Identity struct {
	// ID is the stable user identifier.
	ID string `json:"id"`
	// Email is the user's email address.
	Email string `json:"email,omitempty"`
	// Name is the user's display name.
	Name string `json:"name,omitempty"`
	// Role is the user's role within their company.
	Role string `json:"role,omitempty"`
	// CompanyID scopes company-bound operations.
	CompanyID string `json:"company_id,omitempty"`
	// CompanyName is the display name of the company.
	CompanyName string `json:"company_name,omitempty"`
	// Locale is the user's locale (e.g. "en-US").
	Locale string `json:"locale,omitempty"`
}

// Empty returns true if the identity carries no usable fields.
func (i Identity) Empty() bool {
	return i.ID == "" && i.Email == "" && i.CompanyID == "" && i.Name == ""
}
