package models

// Stage identifiers, in pipeline order.
const (
	StageProspecting = "prospecting"
	StageMeetings    = "meetings"
	StageWebinars    = "webinars"
	StageFollowUp    = "follow_up"
)

// catalog is the fixed table of stages and the rules under them. The external
// evaluator decides who matches a rule; the console only carries the display
// metadata and default templates.
var catalog = []Stage{
	{
		ID:    StageProspecting,
		Name:  "Prospección",
		Order: 1,
		Rules: []Rule{
			{
				ID:              "new-contact-welcome",
				Name:            "Bienvenida a contactos nuevos",
				StageID:         StageProspecting,
				Category:        CategoryGeneric,
				Channel:         ChannelWhatsApp,
				DefaultTemplate: "Hola {contact_name}, gracias por tu interés. ¿Te viene bien una llamada esta semana?",
			},
			{
				ID:              "sector-intro",
				Name:            "Presentación por sector",
				StageID:         StageProspecting,
				Category:        CategoryBusiness,
				Channel:         ChannelEmail,
				DefaultSubject:  "Una propuesta para {business_name}",
				DefaultTemplate: "Hola {contact_name}, trabajamos con empresas del sector {business_sector} y nos gustaría contarte cómo podemos ayudar a {business_name}.",
			},
		},
	},
	{
		ID:    StageMeetings,
		Name:  "Reuniones",
		Order: 2,
		Rules: []Rule{
			{
				ID:              "meeting-24h",
				Name:            "Recordatorio 24h antes",
				StageID:         StageMeetings,
				Category:        CategoryMeeting,
				Channel:         ChannelWhatsApp,
				DefaultTemplate: "Hola {contact_name}, te recordamos tu reunión del {meeting_date} a las {meeting_time}. Enlace: {meeting_link}",
			},
			{
				ID:              "meeting-missed",
				Name:            "Reunión no asistida",
				StageID:         StageMeetings,
				Category:        CategoryMeeting,
				Channel:         ChannelWhatsApp,
				DefaultTemplate: "Hola {contact_name}, no pudimos coincidir el {meeting_date}. ¿Buscamos otro momento?",
			},
		},
	},
	{
		ID:    StageWebinars,
		Name:  "Webinars",
		Order: 3,
		Rules: []Rule{
			{
				ID:              "webinar-invite",
				Name:            "Invitación a webinar",
				StageID:         StageWebinars,
				Category:        CategoryWebinar,
				Channel:         ChannelEmail,
				DefaultSubject:  "Te invitamos a {webinar_name}",
				DefaultTemplate: "Hola {contact_name}, el {webinar_date} celebramos {webinar_name}. Reserva tu plaza aquí: {webinar_link}",
			},
			{
				ID:              "webinar-reminder",
				Name:            "Recordatorio de webinar",
				StageID:         StageWebinars,
				Category:        CategoryWebinar,
				Channel:         ChannelWhatsApp,
				DefaultTemplate: "Hola {contact_name}, mañana {webinar_date} empieza {webinar_name}. Te esperamos: {webinar_link}",
			},
		},
	},
	{
		ID:    StageFollowUp,
		Name:  "Seguimiento",
		Order: 4,
		Rules: []Rule{
			{
				ID:              "inactive-30d",
				Name:            "Sin actividad 30 días",
				StageID:         StageFollowUp,
				Category:        CategoryGeneric,
				Channel:         ChannelWhatsApp,
				DefaultTemplate: "Hola {contact_name}, hace tiempo que no hablamos. ¿Sigue siendo buen momento para retomar la conversación?",
			},
		},
	},
}

// Catalog returns the stages in display order, each with its rules and their
// category variable sets filled in.
func Catalog() []Stage {
	stages := make([]Stage, len(catalog))
	copy(stages, catalog)
	for i := range stages {
		rules := make([]Rule, len(stages[i].Rules))
		copy(rules, stages[i].Rules)
		for j := range rules {
			rules[j].Variables = VariablesFor(rules[j].Category)
		}
		stages[i].Rules = rules
	}
	return stages
}

// RuleByID finds a catalog rule. The second return is false for unknown IDs.
func RuleByID(id string) (Rule, bool) {
	for _, stage := range catalog {
		for _, rule := range stage.Rules {
			if rule.ID == id {
				rule.Variables = VariablesFor(rule.Category)
				return rule, true
			}
		}
	}
	return Rule{}, false
}
