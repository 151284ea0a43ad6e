package email

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/net/html"

	"github.com/matzehuels/mailframe/pkg/render"
)

const (
	// BorderWidth is the container border on each side.
	BorderWidth = 1
	// BottomPadding is added below the lowest fragment.
	BottomPadding = 10
	// DefaultHeight is assumed for units that declare no height.
	DefaultHeight = 100
)

const tableCSS = `body{margin:0;padding:0;background:transparent;}
table{border-collapse:collapse;mso-table-lspace:0pt;mso-table-rspace:0pt;}
td{padding:0;vertical-align:top;}
img{-ms-interpolation-mode:bicubic;border:0;display:block;}
.email-container span{line-height:1.2 !important;}
.email-container td{padding-bottom:5px !important;vertical-align:top !important; text-align:inherit !important;}
.email-container a{display:block !important;text-decoration:none !important;pointer-events:auto !important;}
.email-container { border: 1px solid #dddddd !important; box-sizing: border-box; }
.email-container td, .email-container table { text-align: inherit !important; vertical-align: inherit !important; }
@media screen and (max-width:480px){
.email-container td{padding:0 10px !important;text-align:center !important;}
.email-container img{width:100% !important;height:auto !important;}
}`

// unit is one fragment lifted out of absolute positioning.
type unit struct {
	markup        string
	top, left     int
	width, height int
	textAlign     string
	verticalAlign string
	// link units carry their link wrapper and get a single unpadded cell.
	link          bool
}

// Compile renders fragments as a table-layout document of the given width.
// The height is derived from the fragments.
func Compile(frags []render.Fragment, width int, bg Background) string {
	units := make([]unit, 0, len(frags))
	for _, f := range frags {
		u := unit{
			markup:        f.StaticMarkup(),
			top:           f.Box.Top,
			left:          f.Box.Left,
			width:         min(f.Box.Width, width),
			height:        f.Height,
			textAlign:     "left",
			verticalAlign: "top",
		}
		if u.height <= 0 {
			u.height = DefaultHeight
		}
		if f.Link != nil {
			u.markup = render.WrapLink(f.Link.ID, u.markup)
			u.link = true
		}
		units = append(units, u)
	}
	return build(units, width, bg)
}

// build emits each unit as its own table in top, left order. Non-link units
// sit in a three-cell row whose spacer cells reproduce the left offset; link
// units get a single cell sized to their width. The vertical offset is only
// carried by an mso conditional copy of each table's opening tag; other
// clients stack the tables in document order.
func build(units []unit, width int, bg Background) string {
	slices.SortStableFunc(units, func(a, b unit) int {
		if c := cmp.Compare(a.top, b.top); c != 0 {
			return c
		}
		return cmp.Compare(a.left, b.left)
	})

	bottom := 0
	for _, u := range units {
		bottom = max(bottom, u.top+u.height)
	}
	height := bottom + 2*BorderWidth + BottomPadding
	innerW := width - 2*BorderWidth
	innerH := height - 2*BorderWidth

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\" dir=\"ltr\">\n<head>\n<meta charset=\"UTF-8\">\n")
	buf.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	buf.WriteString("<meta name=\"x-apple-disable-message-reformatting\">\n<title>" + Title + "</title>\n")
	buf.WriteString(officeSettings + "\n")
	buf.WriteString("<style>\n" + tableCSS + "\n</style>\n</head>\n")
	buf.WriteString("<body style=\"margin:0;padding:0;background:transparent;\">\n")

	color, image := html.EscapeString(bg.Color()), html.EscapeString(bg.Image())
	msoOpen(&buf, width)
	fmt.Fprintf(&buf, `<table role="presentation" border="0" cellpadding="0" cellspacing="0" width="%d" style="width:%dpx;height:%dpx;">`+"\n", width, width, height)

	var td render.Declarations
	td.Add("background", color)
	td.Add("border", "1px solid #dddddd")
	td.Add("box-sizing", "border-box")
	td.Add("width", render.Px(innerW))
	td.Add("height", render.Px(innerH))
	buf.WriteString(`<tr><td bgcolor="` + color + `"`)
	if image != "" {
		buf.WriteString(` background="` + image + `"`)
		td.Add("background-image", "url("+image+")")
		td.Add("background-position", "center")
		td.Add("background-repeat", "no-repeat")
		td.Add("background-size", "cover")
	}
	fmt.Fprintf(&buf, ` width="%d" height="%d" valign="top" class="email-container" style="%s">`+"\n", width, height, td.String())
	vmlOpen(&buf, width, height, image, color)

	for _, u := range units {
		if u.link {
			linkTable(&buf, u)
		} else {
			rowTable(&buf, u, innerW)
		}
	}

	vmlClose(&buf)
	buf.WriteString("</td></tr>\n</table>\n")
	msoClose(&buf)
	buf.WriteString("</body>\n</html>")
	return buf.String()
}

// rowTable spans the inner width: left spacer, content, right spacer.
func rowTable(buf *bytes.Buffer, u unit, innerW int) {
	var pos render.Declarations
	pos.Add("position", "absolute")
	pos.Add("top", render.Px(u.top))
	pos.Add("left", "0")
	pos.Add("width", render.Px(innerW))
	openTable(buf, pos.String(), "width:"+render.Px(innerW)+";")

	right := max(innerW-u.left-u.width, 0)
	buf.WriteString("<tr>")
	fmt.Fprintf(buf, `<td width="%d" style="width:%dpx;"></td>`, u.left, u.left)
	fmt.Fprintf(buf, `<td width="%d" style="width:%dpx; %s">%s</td>`, u.width, u.width, alignStyle(u), u.markup)
	fmt.Fprintf(buf, `<td width="%d" style="width:%dpx;"></td>`, right, right)
	buf.WriteString("</tr></table>\n")
}

// linkTable is a single cell sized to the unit; the anchor supplies the
// block width.
func linkTable(buf *bytes.Buffer, u unit) {
	var pos render.Declarations
	pos.Add("position", "absolute")
	pos.Add("top", render.Px(u.top))
	pos.Add("left", render.Px(u.left))
	pos.Add("width", render.Px(u.width))
	openTable(buf, pos.String(), "width:"+render.Px(u.width)+";")

	fmt.Fprintf(buf, `<tr><td style="padding:0; %s">%s</td></tr></table>`+"\n", alignStyle(u), u.markup)
}

// openTable writes two opening tags for the same table: the positioned one
// inside an mso conditional comment, and a static one hidden from mso.
func openTable(buf *bytes.Buffer, msoStyle, style string) {
	const open = `<table role="presentation" border="0" cellpadding="0" cellspacing="0" style="%s">`
	buf.WriteString("<!--[if mso]>")
	fmt.Fprintf(buf, open, msoStyle)
	buf.WriteString("<![endif]-->\n<!--[if !mso]><!-->")
	fmt.Fprintf(buf, open, style)
	buf.WriteString("<!--<![endif]-->")
}

func alignStyle(u unit) string {
	var d render.Declarations
	d.Add("text-align", u.textAlign)
	d.Add("vertical-align", u.verticalAlign)
	return d.String()
}
