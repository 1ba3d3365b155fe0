package cli

import "github.com/logi-lang/logi"

var noColor bool

func newColor(c string) []byte {
	return []byte("\x1b[" + c + "m")
}

var (
	resetColor     = newColor("0")    // Reset
	successColor   = newColor("32")   // Green
	exhaustedColor = newColor("33")   // Yellow
	abortedColor   = newColor("31;1") // Bold Red
	slotColor      = newColor("34;1") // Bold Blue
	addrColor      = newColor("36")   // Cyan
	unboundColor   = newColor("90")   // Bright black
	promptColor    = newColor("35")   // Magenta
)

func colorize(color []byte, s string) string {
	if noColor || color == nil {
		return s
	}
	return string(color) + s + string(resetColor)
}

func statusColor(st logi.Status) []byte {
	switch st {
	case logi.StatusSuccess:
		return successColor
	case logi.StatusExhausted:
		return exhaustedColor
	case logi.StatusAborted:
		return abortedColor
	default:
		return nil
	}
}
