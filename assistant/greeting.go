package assistant

import (
	"strings"
	"time"
)

// Greeting is the banner shown when a user opens the chat, e.g.
// "🎃 Happy Halloween! Good evening Ana! How's your trading going today?".
// The hour and date are taken from now in its own location.
func Greeting(now time.Time, name string) string {
	var timeGreeting string
	switch h := now.Hour(); {
	case h < 12:
		timeGreeting = "Good morning"
	case h < 17:
		timeGreeting = "Good afternoon"
	default:
		timeGreeting = "Good evening"
	}

	var holiday string
	switch _, m, d := now.Date(); {
	case m == time.December && d == 25:
		holiday = "🎄 Merry Christmas! "
	case m == time.January && d == 1:
		holiday = "🎉 Happy New Year! "
	case m == time.October && d == 31:
		holiday = "🎃 Happy Halloween! "
	}

	if name = strings.TrimSpace(name); name != "" {
		name = " " + name
	}
	return holiday + timeGreeting + name + "! How's your trading going today?"
}
