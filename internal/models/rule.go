package models

// Rule categories determine which template variables are offered to the
// operator. The mapping is a fixed table, never computed from data.
const (
	CategoryMeeting  = "meeting"
	CategoryBusiness = "business"
	CategoryWebinar  = "webinar"
	CategoryGeneric  = "generic"
)

// Channel identifies how a rule reaches its recipients.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// Rule is a named targeting condition owned by the external evaluator.
// The console only knows its display metadata and template surface.
type Rule struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	StageID         string   `json:"stage_id"`
	Category        string   `json:"category"`
	Channel         string   `json:"channel"`
	Variables       []string `json:"variables"`
	DefaultSubject  string   `json:"default_subject,omitempty"`
	DefaultTemplate string   `json:"default_template"`
}

// Stage is an ordered business phase used purely to cluster rules for display.
type Stage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
	Rules []Rule `json:"rules"`
}

// variablesByCategory is the fixed lookup table of template variables offered
// per rule category.
var variablesByCategory = map[string][]string{
	CategoryMeeting:  {"contact_name", "meeting_date", "meeting_time", "meeting_link"},
	CategoryBusiness: {"contact_name", "business_name", "business_sector"},
	CategoryWebinar:  {"contact_name", "webinar_name", "webinar_date", "webinar_link"},
	CategoryGeneric:  {"contact_name"},
}

// VariablesFor returns the template variables available for a rule category.
// Unknown categories fall back to the generic contact-only set.
func VariablesFor(category string) []string {
	vars, ok := variablesByCategory[category]
	if !ok {
		vars = variablesByCategory[CategoryGeneric]
	}
	out := make([]string, len(vars))
	copy(out, vars)
	return out
}
