package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"
)

// PairingView displays the pairing challenge as a scannable QR code.
type PairingView struct {
	*tview.TextView
}

// NewPairingView creates a new pairing view.
func NewPairingView() *PairingView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true).SetTitle(" Pairing Required ")

	return &PairingView{TextView: tv}
}

// ShowChallenge renders the challenge payload as a QR code block. Each new
// challenge replaces the previous one wholesale.
func (pv *PairingView) ShowChallenge(content string) {
	pv.Clear()

	ascii := renderQR(content)
	_, _ = fmt.Fprintf(pv, "\n  Scan this code with the messaging app on your phone:\n\n%s\n  [::d]Waiting for pairing...", ascii)
}

// ShowMessage displays a status message in place of the QR code.
func (pv *PairingView) ShowMessage(msg string) {
	pv.Clear()
	_, _ = fmt.Fprintf(pv, "\n\n%s", msg)
}

// renderQR converts a string to a compact ASCII QR code using Unicode
// half-block characters.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder

	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('█') // █
			case top && !bot:
				sb.WriteRune('▀') // ▀
			case !top && bot:
				sb.WriteRune('▄') // ▄
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}

	return sb.String()
}
