package assistant

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ambient-clock/internal/weather"
)

const (
	StyleFriendly   = "friendly"
	StyleScientific = "scientific"
	StyleELI5       = "eli5"
)

const notAvailable = "N/A"

var styleInstructions = map[string]string{
	StyleFriendly:   "Give a friendly, conversational weather summary. Be warm and helpful.",
	StyleScientific: "Give a scientific, detailed weather analysis with meteorological terms.",
	StyleELI5:       "Explain the weather like I'm 5 years old. Use simple words and fun comparisons.",
}

// normalizeStyle maps unknown styles to friendly.
func normalizeStyle(style string) string {
	style = strings.ToLower(strings.TrimSpace(style))
	if _, ok := styleInstructions[style]; ok {
		return style
	}
	return StyleFriendly
}

func num(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func text(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func firstDescription(conds []weather.Condition) string {
	if len(conds) == 0 {
		return notAvailable
	}
	return text(conds[0].Description)
}

func hourLabel(dt int64) string {
	return time.Unix(dt, 0).UTC().Format("15:04")
}

func dayLabel(dt int64) string {
	return time.Unix(dt, 0).UTC().Weekday().String()
}

func rainPercent(pop float64) int {
	return int(pop * 100)
}

func snapshotValue(s *Snapshot, pick func(*Snapshot) string) string {
	if s == nil {
		return notAvailable
	}
	return pick(s)
}

func summaryPrompt(style string, location string, current *Snapshot, hourly []HourlyEntry, daily []DailyEntry) string {
	var hourlyText strings.Builder
	for _, h := range limit(hourly, 6) {
		fmt.Fprintf(&hourlyText, "- %s: %s°, %s, Rain: %d%%\n",
			hourLabel(h.Dt), num(h.Temp), firstDescription(h.Weather), rainPercent(h.Pop))
	}

	var dailyText strings.Builder
	for _, d := range limit(daily, 3) {
		fmt.Fprintf(&dailyText, "- %s: High %s°, Low %s°, %s\n",
			dayLabel(d.Dt), num(d.Temp.Max), num(d.Temp.Min), firstDescription(d.Weather))
	}

	var b strings.Builder
	b.WriteString(styleInstructions[normalizeStyle(style)])
	b.WriteString("\n\nBased on this weather data, provide a helpful weather summary (3-4 sentences):\n\n")
	fmt.Fprintf(&b, "**Current conditions in %s:**\n", orDefault(location, "Unknown"))
	fmt.Fprintf(&b, "- Temperature: %s°\n", num(current.Temp))
	fmt.Fprintf(&b, "- Feels like: %s°\n", num(current.FeelsLike))
	fmt.Fprintf(&b, "- Conditions: %s\n", text(current.Description))
	fmt.Fprintf(&b, "- Humidity: %s%%\n", num(current.Humidity))
	fmt.Fprintf(&b, "- Wind: %s m/s\n\n", num(current.WindSpeed))
	fmt.Fprintf(&b, "**Upcoming hours:**\n%s\n\n", orDefault(hourlyText.String(), notAvailable))
	fmt.Fprintf(&b, "**Upcoming days:**\n%s\n\n", orDefault(dailyText.String(), notAvailable))
	b.WriteString("Include what to expect and any recommendations. Use **bold** for important points.\n")
	return b.String()
}

func chatPrompt(req ChatRequest) string {
	current := pickSnapshot(req.Weather, req.Current)

	var ctxText strings.Builder
	fmt.Fprintf(&ctxText, "Current weather in %s:\n", orDefault(req.Location, "Unknown"))
	fmt.Fprintf(&ctxText, "- Temperature: %s°\n", snapshotValue(current, func(s *Snapshot) string { return num(s.Temp) }))
	fmt.Fprintf(&ctxText, "- Feels like: %s°\n", snapshotValue(current, func(s *Snapshot) string { return num(s.FeelsLike) }))
	fmt.Fprintf(&ctxText, "- Conditions: %s\n", snapshotValue(current, func(s *Snapshot) string { return text(s.Description) }))
	fmt.Fprintf(&ctxText, "- Humidity: %s%%\n", snapshotValue(current, func(s *Snapshot) string { return num(s.Humidity) }))
	fmt.Fprintf(&ctxText, "- Wind: %s m/s\n", snapshotValue(current, func(s *Snapshot) string { return num(s.WindSpeed) }))

	if len(req.Hourly) > 0 {
		ctxText.WriteString("\nUpcoming hours:\n")
		for _, h := range limit(req.Hourly, 8) {
			fmt.Fprintf(&ctxText, "- %s: %s°, Rain: %d%%\n", hourLabel(h.Dt), num(h.Temp), rainPercent(h.Pop))
		}
	}
	if len(req.Daily) > 0 {
		ctxText.WriteString("\nUpcoming days:\n")
		for _, d := range limit(req.Daily, 5) {
			fmt.Fprintf(&ctxText, "- %s: High %s°, Low %s°\n", dayLabel(d.Dt), num(d.Temp.Max), num(d.Temp.Min))
		}
	}

	var conversation strings.Builder
	history := req.History
	if len(history) > 6 {
		history = history[len(history)-6:]
	}
	for _, msg := range history {
		role := "Assistant"
		if msg.Role == "user" {
			role = "User"
		}
		fmt.Fprintf(&conversation, "%s: %s\n", role, msg.Content)
	}

	var b strings.Builder
	b.WriteString("You are a helpful weather assistant for an ambient clock display. Answer questions about the weather concisely and helpfully. Use **bold** for emphasis.\n\n")
	b.WriteString(ctxText.String())
	b.WriteString("\n")
	b.WriteString(conversation.String())
	fmt.Fprintf(&b, "User: %s\n\n", req.Message)
	b.WriteString("Respond helpfully and concisely (2-3 sentences unless more detail is needed). If asked about something unrelated to weather, politely redirect to weather topics.")
	return b.String()
}

func briefingPrompt(current *Snapshot, forecast []ForecastEntry, timezone string) string {
	var forecastText strings.Builder
	for _, item := range limit(forecast, 8) {
		fmt.Fprintf(&forecastText, "- %s: %s°, %s\n", text(item.Time), num(item.Temp), text(item.Description))
	}

	var b strings.Builder
	b.WriteString("You are an ambient display assistant. Generate a calming, helpful daily briefing.\n\n")
	b.WriteString("Current Weather:\n")
	fmt.Fprintf(&b, "- Temperature: %s°\n", num(current.Temp))
	fmt.Fprintf(&b, "- Feels like: %s°\n", num(current.FeelsLike))
	fmt.Fprintf(&b, "- Conditions: %s\n", text(current.Description))
	fmt.Fprintf(&b, "- Humidity: %s%%\n", num(current.Humidity))
	fmt.Fprintf(&b, "- Sunrise: %s\n", text(current.Sunrise))
	fmt.Fprintf(&b, "- Sunset: %s\n\n", text(current.Sunset))
	fmt.Fprintf(&b, "Upcoming forecast:\n%s\n", forecastText.String())
	fmt.Fprintf(&b, "Location: %s\n", orDefault(current.Location, "Unknown"))
	fmt.Fprintf(&b, "Timezone: %s\n\n", orDefault(timezone, "UTC"))
	b.WriteString("Provide a brief, calming daily briefing (3-4 sentences) that includes:\n")
	b.WriteString("1. Current conditions summary\n")
	b.WriteString("2. What to expect throughout the day\n")
	b.WriteString("3. Any clothing or activity recommendations\n")
	return b.String()
}

func limit[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
