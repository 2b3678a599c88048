package idml

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
)

func TestFnum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{306, "306"},
		{-306, "-306"},
		{40.8, "40.8"},
		{-396.25, "-396.25"},
	}
	for _, tt := range tests {
		if got := fnum(tt.in); got != tt.want {
			t.Errorf("fnum(%g) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestItemTransform(t *testing.T) {
	if got := itemTransform(306, -396); got != "1 0 0 1 306 -396" {
		t.Errorf("itemTransform() = %q", got)
	}
}

func TestGeometricBounds(t *testing.T) {
	if got := geometricBounds([4]float64{0, 0, 792, 612}); got != "0 0 792 612" {
		t.Errorf("geometricBounds() = %q", got)
	}
}

func TestRenderSpread(t *testing.T) {
	s := &spread{
		id:   "gs1",
		plan: spreadPlan{Index: 1, OffsetY: 816},
		pages: []page{
			{id: "gp1", plan: planPage(2, 816, testMetrics())},
			{id: "gp2", plan: planPage(3, 816, testMetrics())},
		},
	}

	data := renderSpread(s)

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("rendered spread is not well formed: %v", err)
	}

	root := doc.Root()
	if root.FullTag() != "idPkg:Spread" {
		t.Fatalf("root element = %s, want idPkg:Spread", root.FullTag())
	}
	if got := root.SelectAttrValue("DOMVersion", ""); got != "8.0" {
		t.Errorf("DOMVersion = %q, want 8.0", got)
	}

	el := root.SelectElement("Spread")
	if el == nil {
		t.Fatal("no Spread element")
	}
	if got := el.SelectAttrValue("Self", ""); got != "gs1" {
		t.Errorf("Self = %q, want gs1", got)
	}
	if got := el.SelectAttrValue("PageCount", ""); got != "2" {
		t.Errorf("PageCount = %q, want 2", got)
	}
	if got := el.SelectAttrValue("ItemTransform", ""); got != "1 0 0 1 0 816" {
		t.Errorf("ItemTransform = %q", got)
	}

	pages := el.SelectElements("Page")
	if len(pages) != 2 {
		t.Fatalf("rendered %d Page elements, want 2", len(pages))
	}
	if got := pages[0].SelectAttrValue("Name", ""); got != "2" {
		t.Errorf("first page Name = %q, want 2", got)
	}
	if got := pages[1].SelectAttrValue("Name", ""); got != "3" {
		t.Errorf("second page Name = %q, want 3", got)
	}
}

func TestRenderTextFrame(t *testing.T) {
	f := frame{id: "gf1", storyID: "gt1", x: 36, y: -346, w: 540, h: 88}

	data := renderTextFrame(f)

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("rendered frame is not well formed: %v", err)
	}

	el := doc.Root()
	if el.Tag != "TextFrame" {
		t.Fatalf("root element = %s, want TextFrame", el.Tag)
	}
	if got := el.SelectAttrValue("ParentStory", ""); got != "gt1" {
		t.Errorf("ParentStory = %q, want gt1", got)
	}
	if got := el.SelectAttrValue("ItemTransform", ""); got != "1 0 0 1 36 -346" {
		t.Errorf("ItemTransform = %q", got)
	}

	points := el.FindElements("./Properties/PathGeometry/GeometryPathType/PathPointArray/PathPointType")
	if len(points) != 4 {
		t.Fatalf("rendered %d path points, want 4", len(points))
	}
	anchors := make([]string, 0, len(points))
	for _, pt := range points {
		anchors = append(anchors, pt.SelectAttrValue("Anchor", ""))
	}
	want := []string{"0 0", "0 88", "540 88", "540 0"}
	for i := range want {
		if anchors[i] != want[i] {
			t.Errorf("anchor %d = %q, want %q", i, anchors[i], want[i])
		}
	}
}

func TestRenderStory(t *testing.T) {
	st := &story{id: "gt1", title: "Chapter <1>", text: "Body & soul"}

	data := renderStory(st)

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("rendered story is not well formed: %v", err)
	}

	el := doc.FindElement("//Story")
	if el == nil {
		t.Fatal("no Story element")
	}
	if got := el.SelectAttrValue("Self", ""); got != "gt1" {
		t.Errorf("Self = %q, want gt1", got)
	}

	contents := doc.FindElements("//Content")
	if len(contents) != 2 {
		t.Fatalf("rendered %d Content elements, want 2", len(contents))
	}
	if got := contents[0].Text(); got != "Chapter <1>" {
		t.Errorf("title content = %q", got)
	}
	if got := contents[1].Text(); got != "Body & soul" {
		t.Errorf("body content = %q", got)
	}

	// raw markup must carry escaped entities
	raw := string(data)
	if !strings.Contains(raw, "Chapter &lt;1&gt;") || !strings.Contains(raw, "Body &amp; soul") {
		t.Error("user text is not entity escaped in raw markup")
	}
}

func TestRenderStory_TitleOnly(t *testing.T) {
	data := renderStory(&story{id: "gt1", title: "Heading"})

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("rendered story is not well formed: %v", err)
	}
	contents := doc.FindElements("//Content")
	if len(contents) != 1 {
		t.Fatalf("rendered %d Content elements, want 1", len(contents))
	}
	if doc.FindElement("//Br") == nil {
		t.Error("title run misses line break")
	}
}

func TestRenderStory_TextOnly(t *testing.T) {
	data := renderStory(&story{id: "gt1", text: "just text"})

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("rendered story is not well formed: %v", err)
	}
	if doc.FindElement("//Br") != nil {
		t.Error("story without title rendered a title line break")
	}
}

func TestMemberNames(t *testing.T) {
	s := &spread{id: "gs7"}
	if got := s.memberName(); got != "Spreads/Spread_gs7.xml" {
		t.Errorf("spread member name = %q", got)
	}
	st := &story{id: "gt7"}
	if got := st.memberName(); got != "Stories/Story_gt7.xml" {
		t.Errorf("story member name = %q", got)
	}
}
