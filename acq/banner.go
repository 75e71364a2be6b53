package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Human-readable startup/shutdown banner.
 *
 * Description:	Purely a log-line convenience; never touches the binary
 *		header's Unix timestamp field, which stays a raw integer.
 *
 *---------------------------------------------------------------*/

import (
	"time"

	"github.com/lestrrat-go/strftime"
)

var bannerPattern = strftime.MustNew("%Y-%m-%d %H:%M:%S %Z")

// LogStartupBanner logs a one-line acquisition-start banner.
func LogStartupBanner(log Logger, cfg Config, at time.Time) {
	log.Infof("acquisition started %s: %d channel(s), %q, buffer %d samples",
		bannerPattern.FormatString(at), cfg.NumChannels, cfg.HWName, cfg.DAQBufferSize)
}

// LogShutdownBanner logs a one-line acquisition-stop banner.
func LogShutdownBanner(log Logger, at time.Time) {
	log.Infof("acquisition stopped %s", bannerPattern.FormatString(at))
}
