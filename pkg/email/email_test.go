package email

import (
	"regexp"
	"strings"
	"testing"

	"github.com/matzehuels/mailframe/pkg/render"
)

func shape(left, top, w, h int) render.Fragment {
	box := render.BoxStyle{Left: left, Top: top, Width: w, Height: h, HasHeight: true}
	return render.Fragment{
		Kind:   render.FragmentShape,
		Box:    box,
		Body:   `<tr><td style="width:` + render.Px(w) + `;">&nbsp;</td></tr>`,
		Height: h,
	}
}

// withoutMSO drops mso conditional blocks, leaving what other clients see.
var msoBlock = regexp.MustCompile(`(?s)<!--\[if (?:gte )?mso[^\]]*\]>.*?<!\[endif\]-->`)

func withoutMSO(s string) string { return msoBlock.ReplaceAllString(s, "") }

func TestCompileHeight(t *testing.T) {
	frags := []render.Fragment{shape(0, 0, 100, 40), shape(10, 50, 200, 30)}
	out := Compile(frags, 500, ColorBackground("#123456"))

	wants := []string{
		`width="500" style="width:500px;height:92px;"`,
		`<td bgcolor="#123456" width="500" height="92" valign="top" class="email-container" style="background:#123456; border:1px solid #dddddd; box-sizing:border-box; width:498px; height:90px;">`,
		`<td width="10" style="width:10px;"></td><td width="200" style="width:200px; text-align:left; vertical-align:top;">`,
		`<td width="288" style="width:288px;"></td></tr></table>`,
		`<meta name="viewport" content="width=device-width, initial-scale=1.0">`,
		`@media screen and (max-width:480px)`,
		`<v:fill type="frame" src="" color="#123456"/>`,
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q", w)
		}
	}
	if strings.Contains(withoutMSO(out), "position:absolute") {
		t.Error("absolute positioning outside mso conditional markup")
	}
}

func TestCompileRows(t *testing.T) {
	const open = `<table role="presentation" border="0" cellpadding="0" cellspacing="0" style="`
	tests := []struct {
		name  string
		frags []render.Fragment
		wants []string
	}{
		{
			name:  "overlapping fragments keep their own tables",
			frags: []render.Fragment{shape(0, 0, 300, 100), shape(20, 20, 100, 20)},
			wants: []string{
				`<!--[if mso]>` + open + `position:absolute; top:20px; left:0; width:398px;"><![endif]-->`,
				`<!--[if !mso]><!-->` + open + `width:398px;"><!--<![endif]--><tr><td width="20" style="width:20px;"></td><td width="100" style="width:100px; text-align:left; vertical-align:top;">`,
				`<td width="278" style="width:278px;"></td>`,
			},
		},
		{
			name:  "left edge at zero keeps an empty spacer",
			frags: []render.Fragment{shape(0, 0, 100, 20)},
			wants: []string{`<tr><td width="0" style="width:0px;"></td><td width="100"`},
		},
		{
			name:  "right spacer never goes negative",
			frags: []render.Fragment{shape(350, 0, 100, 20)},
			wants: []string{`<td width="100" style="width:100px; text-align:left; vertical-align:top;">`, `<td width="0" style="width:0px;"></td></tr></table>`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Compile(tt.frags, 400, Background{})
			if n := strings.Count(out, `<!--[if !mso]><!-->`); n != len(tt.frags) {
				t.Errorf("tables = %d, want %d", n, len(tt.frags))
			}
			for _, w := range tt.wants {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q\n%s", w, out)
				}
			}
			if strings.Contains(withoutMSO(out), "top:") {
				t.Errorf("vertical offset visible outside mso markup:\n%s", out)
			}
		})
	}
}

func TestCompileOrder(t *testing.T) {
	out := Compile([]render.Fragment{
		shape(200, 40, 10, 10),
		shape(100, 0, 10, 10),
		shape(0, 40, 10, 10),
	}, 400, Background{})

	var got []int
	for _, s := range []string{"top:0px; left:0; width:398px;", `<td width="0" style="width:0px;"></td><td width="10"`, `<td width="200" style="width:200px;">`} {
		i := strings.Index(out, s)
		if i < 0 {
			t.Fatalf("output missing %q", s)
		}
		got = append(got, i)
	}
	if !(got[0] < got[1] && got[1] < got[2]) {
		t.Errorf("fragments not ordered by top then left: %v", got)
	}
}

func TestCompileLink(t *testing.T) {
	f := shape(120, 0, 100, 40).WithLink(render.Link{ID: "link-1", URL: "https://example.com"})
	out := Compile([]render.Fragment{f}, 300, ImageBackground("./images/bg-image-1.png"))

	const open = `<table role="presentation" border="0" cellpadding="0" cellspacing="0" style="`
	wants := []string{
		`<!--[if mso]>` + open + `position:absolute; top:0px; left:120px; width:100px;"><![endif]-->`,
		`<!--[if !mso]><!-->` + open + `width:100px;"><!--<![endif]--><tr><td style="padding:0; text-align:left; vertical-align:top;"><div data-link-placeholder-id="link-1"><table`,
		`background="./images/bg-image-1.png"`,
		`background-image:url(./images/bg-image-1.png); background-position:center;`,
		`bgcolor="#ffffff"`,
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q\n%s", w, out)
		}
	}
	if strings.Contains(out, `width="120"`) {
		t.Errorf("link fragment got spacer cells:\n%s", out)
	}
}

func TestCompileDefaultHeight(t *testing.T) {
	f := shape(0, 0, 100, 0)
	f.Height = 0
	out := Compile([]render.Fragment{f}, 200, Background{})
	if !strings.Contains(out, `style="width:200px;height:112px;"`) {
		t.Errorf("want default height 100 + 12:\n%s", out)
	}
}

func TestConvert(t *testing.T) {
	frags := []render.Fragment{shape(0, 0, 100, 40), shape(10, 50, 200, 30)}
	out, err := Convert(Positioned(frags, 500, 200), 500, ColorBackground("#123456"))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}

	if !strings.Contains(out, `width="500" style="width:500px;height:92px;"`) {
		t.Errorf("converted height does not match compiled height:\n%s", out)
	}
	if !strings.Contains(out, `style="width:200px; height:30px;"`) {
		t.Errorf("positioning not stripped:\n%s", out)
	}
	if strings.Contains(out, "position:absolute") {
		t.Error("output still contains absolute positioning")
	}
}

func TestConvertIdempotent(t *testing.T) {
	inputs := []string{
		Compile([]render.Fragment{shape(0, 0, 100, 40)}, 300, ColorBackground("#000000")),
		`<p>no positioned content</p>`,
		`<table style="position:relative; top:10px;"><tr><td>x</td></tr></table>`,
	}
	for _, in := range inputs {
		out, err := Convert(in, 300, Background{})
		if err != nil {
			t.Fatalf("Convert() error: %v", err)
		}
		if out != in {
			t.Errorf("Convert() changed markup without positioned tables:\n%s", in)
		}
	}
}

func TestConvertNested(t *testing.T) {
	in := `<table style="position:absolute; left:0px; top:0px; width:100px; height:20px;"><tr><td>` +
		`<table style="position:absolute; left:5px; top:500px; width:10px;"><tr><td>inner</td></tr></table>` +
		`</td></tr></table>`
	out, err := Convert(in, 200, Background{})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if !strings.Contains(out, "top:500px") {
		t.Error("nested positioned table was repositioned")
	}
	if !strings.Contains(out, `height:32px;`) {
		t.Errorf("height should come from the outer table only:\n%s", out)
	}
}

func TestConvertLinkPromotion(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{
			name: "anchor",
			in:   `<a href="https://example.com"><table style="position:absolute; left:0px; top:0px; width:50px; height:10px;"><tr><td>x</td></tr></table></a>`,
			want: `<td style="padding:0; text-align:left; vertical-align:top;"><a href="https://example.com"><table`,
		},
		{
			name: "placeholder",
			in:   render.WrapLink("link-7", `<table style="position:absolute; left:0px; top:0px; width:50px; height:10px;"><tr><td>x</td></tr></table>`),
			want: `vertical-align:top;"><div data-link-placeholder-id="link-7"><table`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Convert(tt.in, 100, Background{})
			if err != nil {
				t.Fatalf("Convert() error: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q\n%s", tt.want, out)
			}
		})
	}
}

func TestLiftGeometry(t *testing.T) {
	tests := []struct {
		name                             string
		in                               string
		wantTop, wantLeft, wantW, wantH  int
		wantAlign, wantVAlign, wantStyle string
	}{
		{
			name:       "fractional and clamped",
			in:         `<table style="position:absolute; left:12.7px; top:30px; width:900px; padding-top:4px; padding-bottom:6px;"></table>`,
			wantTop:    30,
			wantLeft:   12,
			wantW:      500,
			wantH:      110,
			wantAlign:  "left",
			wantVAlign: "top",
			wantStyle:  "width:900px; padding-top:4px; padding-bottom:6px;",
		},
		{
			name:       "height attribute and alignment attributes",
			in:         `<table align="center" valign="middle" height="40" style="position:absolute; top:5px; line-height:20px;"></table>`,
			wantTop:    5,
			wantW:      500,
			wantH:      40,
			wantAlign:  "center",
			wantVAlign: "middle",
			wantStyle:  "line-height:20px;",
		},
		{
			name:       "unreadable height falls back",
			in:         `<table style="position:absolute; top:0px; height:99999999999999999999999px;"></table>`,
			wantW:      500,
			wantH:      DefaultHeight,
			wantAlign:  "left",
			wantVAlign: "top",
			wantStyle:  "height:99999999999999999999999px;",
		},
		{
			name:       "style alignment wins",
			in:         `<table align="center" style="POSITION: absolute; Top: 8px; text-align:right; vertical-align:bottom; height:12px;"></table>`,
			wantTop:    8,
			wantW:      500,
			wantH:      12,
			wantAlign:  "right",
			wantVAlign: "bottom",
			wantStyle:  "text-align:right; vertical-align:bottom; height:12px;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := parseTables(t, tt.in)
			u, err := lift(tables[0], 500)
			if err != nil {
				t.Fatalf("lift() error: %v", err)
			}
			if u.top != tt.wantTop || u.left != tt.wantLeft || u.width != tt.wantW || u.height != tt.wantH {
				t.Errorf("geometry = (top %d, left %d, w %d, h %d), want (%d, %d, %d, %d)",
					u.top, u.left, u.width, u.height, tt.wantTop, tt.wantLeft, tt.wantW, tt.wantH)
			}
			if u.textAlign != tt.wantAlign || u.verticalAlign != tt.wantVAlign {
				t.Errorf("alignment = (%s, %s), want (%s, %s)", u.textAlign, u.verticalAlign, tt.wantAlign, tt.wantVAlign)
			}
			if got := attr(tables[0], "style"); got != tt.wantStyle {
				t.Errorf("style = %q, want %q", got, tt.wantStyle)
			}
		})
	}
}

func TestAbsolute(t *testing.T) {
	frags := []render.Fragment{shape(10, 20, 100, 40)}
	out := Absolute(frags, 600, 300, ImageBackground("./images/bg-image-1.png"))

	wants := []string{
		`<title>Mailer</title>`,
		`<div style="position:relative; width:600px; height:300px;"><table role="presentation" border="0" cellpadding="0" cellspacing="0" style="position:absolute; left:10px; top:20px; width:100px; height:40px;">`,
		`<td background="./images/bg-image-1.png" bgcolor="#ffffff" width="600" height="300" valign="top"`,
		`<v:rect xmlns:v="urn:schemas-microsoft-com:vml" fill="true" stroke="false" style="width:600px;height:300px;">`,
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q", w)
		}
	}
}

func TestAssemble(t *testing.T) {
	frags := []render.Fragment{shape(0, 0, 100, 40)}
	if out := Assemble(frags, 200, 100, Background{}, false); !strings.Contains(out, "position:absolute") {
		t.Error("absolute mode lost positioning")
	}
	if out := Assemble(frags, 200, 100, Background{}, true); strings.Contains(out, "position:absolute") {
		t.Error("table mode kept positioning")
	}
}

func TestParseBackground(t *testing.T) {
	tests := []struct {
		in   string
		want Background
	}{
		{"", Background{}},
		{"#1a2b3c", ColorBackground("#1a2b3c")},
		{"./images/bg.png", ImageBackground("./images/bg.png")},
	}
	for _, tt := range tests {
		if got := ParseBackground(tt.in); got != tt.want {
			t.Errorf("ParseBackground(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
