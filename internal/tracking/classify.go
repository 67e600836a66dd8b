package tracking

import "regexp"

const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
	Unknown       = "Unknown"
)

// DeviceInfo is the coarse fingerprint reported with each page view.
type DeviceInfo struct {
	Device  string
	Browser string
	OS      string
}

type rung struct {
	re    *regexp.Regexp
	label string
}

// Ladders are evaluated top to bottom and the first match wins. A Chrome
// user agent also carries "Safari", so Chrome must stay above Safari; an Edge
// user agent carries "Chrome", so Edge stays above Chrome. The order is part of
// the observable output and must not be reshuffled.
var (
	deviceLadder = []rung{
		{regexp.MustCompile(`(?i)Mobi|Android`), DeviceMobile},
		{regexp.MustCompile(`(?i)Tablet|iPad`), DeviceTablet},
	}
	browserLadder = []rung{
		{regexp.MustCompile(`Firefox`), "Firefox"},
		{regexp.MustCompile(`Edg`), "Edge"},
		{regexp.MustCompile(`Chrome`), "Chrome"},
		{regexp.MustCompile(`Safari`), "Safari"},
		{regexp.MustCompile(`Opera|OPR`), "Opera"},
	}
	osLadder = []rung{
		{regexp.MustCompile(`Windows`), "Windows"},
		{regexp.MustCompile(`Mac OS`), "macOS"},
		{regexp.MustCompile(`Linux`), "Linux"},
		{regexp.MustCompile(`Android`), "Android"},
		{regexp.MustCompile(`iPhone|iPad`), "iOS"},
	}
)

func climb(ladder []rung, ua, fallback string) string {
	for _, r := range ladder {
		if r.re.MatchString(ua) {
			return r.label
		}
	}
	return fallback
}

// Classify derives device, browser and OS from a user agent string.
func Classify(userAgent string) DeviceInfo {
	return DeviceInfo{
		Device:  climb(deviceLadder, userAgent, DeviceDesktop),
		Browser: climb(browserLadder, userAgent, Unknown),
		OS:      climb(osLadder, userAgent, Unknown),
	}
}
