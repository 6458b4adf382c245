package blog

import (
	"strconv"
	"time"
)

var shortMonths = [...]string{
	"jan", "fev", "mar", "abr", "mai", "jun",
	"jul", "ago", "set", "out", "nov", "dez",
}

// FormatDate renders t as "d MMM yyyy" with Brazilian Portuguese month
// abbreviations, e.g. "25 mar 2021". The zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.Itoa(t.Day()) + " " + shortMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}
