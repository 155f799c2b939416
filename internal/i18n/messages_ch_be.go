package i18n

// berneseGermanMessages contains all Bernese Swiss German (Bärndütsch) translations
var berneseGermanMessages = map[string]string{
	// Error messages
	"error.resolve.not_found": "❌ Ha kei Film gfunde für: %s",
	"error.generic":           "Öppis isch schief gloffe. Probier's haut nomau, bitte.",

	// Command replies
	"stats.count":         "📊 Mir hei %d Filme ir Sammlig!",
	"recent.title":        "Di neuste Filme:",
	"recent.empty":        "No kei Filme ir Sammlig!",
	"recent.line":         "- %s (%d) - vo %s",
	"recent.line_no_year": "- %s - vo %s",

	// Scan command
	"scan.start":       "Gö di letschte %d Nachrichte noch Film-Links düre...",
	"scan.done":        "Fertig! Nöi: %d, scho gha: %d, Fähler: %d",
	"scan.unsupported": "I cha i däm Chat leider kei auti Nachrichte läse.",
	"scan.failed":      "S'Scanne het nid klappt. Probier's nomau.",
}
