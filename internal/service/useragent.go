package service

import (
	"regexp"

	"tinylink/internal/models"
)

var (
	tabletPattern  = regexp.MustCompile(`(?i)tablet|ipad|playbook|silk`)
	androidPattern = regexp.MustCompile(`(?i)android`)
	mobileHint     = regexp.MustCompile(`(?i)mobi`)
	mobilePattern  = regexp.MustCompile(`(?i)up\.browser|up\.link|mmp|symbian|smartphone|midp|wap|phone|android|ios`)
	desktopPattern = regexp.MustCompile(`(?i)windows|macintosh|mac os|linux|x11`)
)

// classifyDevice buckets a User-Agent string into a coarse device type.
// Android without a mobile hint is a tablet; order matters because tablets
// match many mobile keywords too.
func classifyDevice(userAgent string) string {
	switch {
	case userAgent == "":
		return models.DeviceOther
	case tabletPattern.MatchString(userAgent):
		return models.DeviceTablet
	case androidPattern.MatchString(userAgent) && !mobileHint.MatchString(userAgent):
		return models.DeviceTablet
	case mobilePattern.MatchString(userAgent):
		return models.DeviceMobile
	case desktopPattern.MatchString(userAgent):
		return models.DeviceDesktop
	default:
		return models.DeviceOther
	}
}
