package quote

import "regexp"

// Kind is the listing type of a code, it selects the exchange endpoints to query.
type Kind int

const (
	Unknown Kind = iota
	ETF
	Listed // main board
	OTC
)

func (k Kind) String() string {
	switch k {
	case ETF:
		return "etf"
	case Listed:
		return "listed"
	case OTC:
		return "otc"
	}
	return "unknown"
}

var (
	etfPattern    = regexp.MustCompile(`^00\d+`)
	listedPattern = regexp.MustCompile(`^[1-9]\d{3}$`)
	otcPattern    = regexp.MustCompile(`^[4-8]\d{3}$`)
)

// Classify returns the listing type of code from its shape alone.
//
// Every 4-digit code starting with 1-9 is classified as Listed first, so the
// OTC rule never matches on its own. OTC shares classified as Listed miss on
// the main board and are then priced by the aggregator.
func Classify(code string) Kind {
	switch {
	case etfPattern.MatchString(code):
		return ETF
	case listedPattern.MatchString(code):
		return Listed
	case otcPattern.MatchString(code):
		return OTC
	}
	return Unknown
}
