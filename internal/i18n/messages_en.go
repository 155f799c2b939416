package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.resolve.not_found": "❌ Couldn't find a movie for: %s",
	"error.generic":           "Something went wrong. Please try again.",

	// Command replies
	"stats.count":  "📊 We have %d movies in the collection!",
	"recent.title": "Recently added movies:",
	"recent.empty": "No movies in the collection yet!",
	"recent.line":  "- %s (%d) - added by %s",
	// Used when the release year is unknown.
	"recent.line_no_year": "- %s - added by %s",

	// Scan command
	"scan.start":       "Scanning the last %d messages for movie links...",
	"scan.done":        "Scan complete! Added: %d, already existed: %d, errors: %d",
	"scan.unsupported": "I can't read old messages in this chat, sorry.",
	"scan.failed":      "Scanning failed. Please try again.",
}
