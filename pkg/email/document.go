package email

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/matzehuels/mailframe/pkg/render"
)

// Title is the document title of every generated email.
const Title = "Mailer"

const officeSettings = `<!--[if gte mso 9]><xml><o:OfficeDocumentSettings><o:AllowPNG/><o:PixelsPerInch>96</o:PixelsPerInch></o:OfficeDocumentSettings></xml><![endif]-->`

const absoluteCSS = `body{margin: 0; padding: 0; background-color: transparent;}
table{border-collapse:collapse; mso-table-lspace:0pt; mso-table-rspace:0pt;}
td{padding:0;vertical-align:top;}
img{-ms-interpolation-mode:bicubic; border:0; display:block; outline:none; text-decoration:none; height:auto;}`

// Assemble renders fragments into a document of the given size, in table
// layout when useTableLayout is set and with absolute positioning otherwise.
func Assemble(frags []render.Fragment, width, height int, bg Background, useTableLayout bool) string {
	if useTableLayout {
		return Compile(frags, width, bg)
	}
	return Absolute(frags, width, height, bg)
}

// Absolute renders fragments at their absolute offsets.
func Absolute(frags []render.Fragment, width, height int, bg Background) string {
	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html><html lang="en" dir="ltr"><head><meta charset="UTF-8">`)
	buf.WriteString(`<meta name="x-apple-disable-message-reformatting"><title>` + Title + `</title>`)
	buf.WriteString(officeSettings)
	buf.WriteString("<style>\n" + absoluteCSS + "\n</style></head>\n")
	buf.WriteString(`<body style="margin:0; padding:0; background-color:transparent;">` + "\n")

	color, image := html.EscapeString(bg.Color()), html.EscapeString(bg.Image())
	msoOpen(&buf, width)
	fmt.Fprintf(&buf, `<table role="presentation" border="0" cellpadding="0" cellspacing="0" width="%d" style="width:%dpx; height:%dpx;">`+"\n", width, width, height)
	fmt.Fprintf(&buf, `<tr><td background="%s" bgcolor="%s" width="%d" height="%d" valign="top" `+
		`style="background-image:url(%s); background-position: center center; background-repeat: no-repeat; background-size: cover;">`+"\n",
		image, color, width, height, image)
	vmlOpen(&buf, width, height, image, color)
	buf.WriteString(Positioned(frags, width, height))
	buf.WriteString("\n")
	vmlClose(&buf)
	buf.WriteString("</td></tr>\n</table>\n")
	msoClose(&buf)
	buf.WriteString("</body></html>")
	return buf.String()
}

// Positioned returns the relatively positioned container holding every
// fragment's absolute markup. It is the input [Convert] expects.
func Positioned(frags []render.Fragment, width, height int) string {
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = f.Markup()
	}
	return fmt.Sprintf(`<div style="position:relative; width:%dpx; height:%dpx;">`, width, height) +
		strings.Join(parts, "\n") + `</div>`
}

func msoOpen(buf *bytes.Buffer, width int) {
	fmt.Fprintf(buf, "<center>\n<!--[if mso]>\n"+
		`<table role="presentation" border="0" cellpadding="0" cellspacing="0" width="%d"><tr><td>`+
		"\n<![endif]-->\n", width)
}

func msoClose(buf *bytes.Buffer) {
	buf.WriteString("<!--[if mso]>\n</td></tr></table>\n<![endif]-->\n</center>\n")
}

func vmlOpen(buf *bytes.Buffer, width, height int, image, color string) {
	fmt.Fprintf(buf, "<!--[if gte mso 9]>\n"+
		`<v:rect xmlns:v="urn:schemas-microsoft-com:vml" fill="true" stroke="false" style="width:%dpx;height:%dpx;">`+"\n"+
		`<v:fill type="frame" src="%s" color="%s"/>`+"\n"+
		`<v:textbox inset="0,0,0,0">`+
		"\n<![endif]-->\n", width, height, image, color)
}

func vmlClose(buf *bytes.Buffer) {
	buf.WriteString("<!--[if gte mso 9]>\n</v:textbox>\n</v:rect>\n<![endif]-->\n")
}
