package model

// CompanyProfile holds the user-entered facts that seed an enrichment run.
// It is immutable once handed to the pipeline; corrections go through a new
// run with an edited profile.
type CompanyProfile struct {
	Name          string            `json:"companyName"`
	Website       string            `json:"website,omitempty"`
	Industry      string            `json:"industry,omitempty"`
	Location      string            `json:"location"`
	SocialHandles map[string]string `json:"socialHandles,omitempty"`
	Notes         string            `json:"notes,omitempty"`
}

// WebsiteMetadata is the ephemeral result of scraping a company website.
// It is only used to suggest a corrected company name and is never persisted.
type WebsiteMetadata struct {
	CompanyName string            `json:"companyName,omitempty"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	MetaTags    map[string]string `json:"metaTags"`
}
