package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Placeholders for missing parameter fields
const (
	NoName = "no-name"
	NoType = "no type"
)

// Param documents one parameter.
type Param struct {
	Name        string
	Optional    bool
	Type        string
	Description string
}

// RenderParam renders a parameter as a name line (name, Optional tag or
// REQUIRED badge, type) followed by the description when present.
func RenderParam(p Param) string {
	name := p.Name
	if name == "" {
		name = NoName
	}
	typ := p.Type
	if typ == "" {
		typ = NoType
	}

	var tag string
	if p.Optional {
		tag = ParamOptionalStyle.Render("Optional")
	} else {
		tag = ParamRequiredStyle.Render("REQUIRED")
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center,
		ParamNameStyle.Render(name), " ",
		tag, " ",
		ParamTypeStyle.Render(typ),
	)

	if strings.TrimSpace(p.Description) == "" {
		return line
	}
	return line + "\n" + ParamDescriptionStyle.Render(p.Description)
}

// ConfigParams documents the parameters of a realtime test connection.
func ConfigParams() []Param {
	return []Param{
		{
			Name:        "project",
			Type:        "string",
			Description: "Project ref whose API settings supply the credentials.",
		},
		{
			Name:        "token",
			Type:        "string",
			Description: "API key sent as apikey when connecting. Follows the anon key whenever the credential list changes.",
		},
		{
			Name:        "bearer",
			Optional:    true,
			Type:        "string (JWT)",
			Description: "User JWT used as the channel access token. Set it to test channel policies as that user.",
		},
		{
			Name:        "channel",
			Optional:    true,
			Type:        "string",
			Description: "Channel name, joined as realtime:<channel>. Defaults to realtime-inspector.",
		},
		{
			Name:        "schema",
			Optional:    true,
			Type:        "string",
			Description: "Schema for database change subscriptions. Defaults to public.",
		},
		{
			Name:        "table",
			Optional:    true,
			Type:        "string",
			Description: "Table for database change subscriptions, or * for all tables.",
		},
		{
			Name:        "filter",
			Optional:    true,
			Type:        "string",
			Description: "Row filter for database change subscriptions (e.g., id=eq.1).",
		},
	}
}
