package settings

import "fmt"

type PageType string

const (
	PageNone     PageType = "None"
	PageMarkdown PageType = "Markdown"
)

func (t *PageType) UnmarshalText(text []byte) error {
	v, ok := parseEnum(string(text), string(PageNone), string(PageMarkdown))
	if !ok {
		return fmt.Errorf("invalid page type %q", string(text))
	}
	*t = PageType(v)
	return nil
}

// RepositoryPage is the content of page.json.
type RepositoryPage struct {
	PageType PageType `json:"page_type"`
}

// DefaultRepositoryPage is used when page.json does not exist.
func DefaultRepositoryPage() RepositoryPage {
	return RepositoryPage{PageType: PageNone}
}

// UpdateRepositoryPage is the body of the page endpoints.
type UpdateRepositoryPage struct {
	Settings RepositoryPage `json:"settings"`
	Page     *string        `json:"page"`
}

// StagingConfig points a Maven repository at a git remote that receives
// released artifacts.
type StagingConfig struct {
	URL       string `json:"url"`
	Branch    string `json:"branch"`
	Directory string `json:"directory"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

func (s *StagingConfig) Enabled() bool {
	return s != nil && s.URL != ""
}
