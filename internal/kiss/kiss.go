// Package kiss frames AX.25 packets for a KISS TNC.
package kiss

const (
	FEND  = 0xC0 // frame end
	FESC  = 0xDB // frame escape
	TFEND = 0xDC // transposed frame end
	TFESC = 0xDD // transposed frame escape

	// CmdData is the data frame command on port 0.
	CmdData = 0x00
)

// Frame wraps an AX.25 frame as FEND, CmdData, frame, FEND.
//
// Frame does not escape FEND or FESC bytes inside ax25; callers that need
// strict KISS transparency pass the frame through Escape first.
func Frame(ax25 []byte) []byte {
	out := make([]byte, 0, len(ax25)+3)
	out = append(out, FEND, CmdData)
	out = append(out, ax25...)
	return append(out, FEND)
}

// Escape transposes FEND to FESC TFEND and FESC to FESC TFESC.
func Escape(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case FEND:
			out = append(out, FESC, TFEND)
		case FESC:
			out = append(out, FESC, TFESC)
		default:
			out = append(out, c)
		}
	}
	return out
}
