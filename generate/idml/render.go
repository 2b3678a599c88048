package idml

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	pkgNamespace = "http://ns.adobe.com/AdobeInDesign/idml/1.0/packaging"
	domVersion   = "8.0"

	spreadsDir = "Spreads"
	storiesDir = "Stories"
)

type frame struct {
	id      string
	storyID string
	x, y    float64
	w, h    float64
}

type page struct {
	id   string
	plan pagePlan
}

type spread struct {
	id     string
	plan   spreadPlan
	pages  []page
	frames []frame
}

type story struct {
	id    string
	title string
	text  string
}

func (s *spread) memberName() string {
	return spreadsDir + "/Spread_" + s.id + ".xml"
}

func (st *story) memberName() string {
	return storiesDir + "/Story_" + st.id + ".xml"
}

func fnum(v float64) string {
	checkFinite(v)
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// itemTransform renders a translation-only coordinate transform.
func itemTransform(x, y float64) string {
	return "1 0 0 1 " + fnum(x) + " " + fnum(y)
}

func geometricBounds(b [4]float64) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fnum(v)
	}
	return strings.Join(parts, " ")
}

func newMemberDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

func serialize(doc *etree.Document) []byte {
	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		// etree never fails writing to memory
		panic(err)
	}
	return data
}

// renderSpread produces the spread member markup with its pages. Text frames
// are spliced in by the package editor in a separate pass.
func renderSpread(s *spread) []byte {
	doc := newMemberDocument()

	root := doc.CreateElement("idPkg:Spread")
	root.CreateAttr("xmlns:idPkg", pkgNamespace)
	root.CreateAttr("DOMVersion", domVersion)

	el := root.CreateElement("Spread")
	el.CreateAttr("Self", s.id)
	el.CreateAttr("FlattenerOverride", "Default")
	el.CreateAttr("ShowMasterItems", "true")
	el.CreateAttr("PageCount", strconv.Itoa(len(s.pages)))
	el.CreateAttr("BindingLocation", "0")
	el.CreateAttr("AllowPageShuffle", "true")
	el.CreateAttr("ItemTransform", itemTransform(0, s.plan.OffsetY))
	el.CreateAttr("PageTransitionType", "None")
	el.CreateAttr("PageTransitionDirection", "NotApplicable")
	el.CreateAttr("PageTransitionDuration", "Medium")

	for _, p := range s.pages {
		pe := el.CreateElement("Page")
		pe.CreateAttr("Self", p.id)
		pe.CreateAttr("Name", strconv.Itoa(p.plan.Number))
		pe.CreateAttr("GeometricBounds", geometricBounds(p.plan.Bounds))
		pe.CreateAttr("ItemTransform", itemTransform(p.plan.X, p.plan.Y))
		pe.CreateAttr("TabOrder", "")
		pe.CreateAttr("OverrideList", "")
		pe.CreateAttr("GridStartingPoint", "TopOutside")
		pe.CreateAttr("ShowMasterOverlay", "true")
	}

	return serialize(doc)
}

// renderTextFrame produces a standalone text frame fragment referencing its
// story and carrying rectangular path geometry derived from the frame size.
func renderTextFrame(f frame) []byte {
	doc := etree.NewDocument()

	el := doc.CreateElement("TextFrame")
	el.CreateAttr("Self", f.id)
	el.CreateAttr("ParentStory", f.storyID)
	el.CreateAttr("ContentType", "TextType")
	el.CreateAttr("ItemTransform", itemTransform(f.x, f.y))

	props := el.CreateElement("Properties")
	geom := props.CreateElement("PathGeometry")
	path := geom.CreateElement("GeometryPathType")
	path.CreateAttr("PathOpen", "false")
	points := path.CreateElement("PathPointArray")
	for _, anchor := range [][2]float64{{0, 0}, {0, f.h}, {f.w, f.h}, {f.w, 0}} {
		pt := points.CreateElement("PathPointType")
		a := fnum(anchor[0]) + " " + fnum(anchor[1])
		pt.CreateAttr("Anchor", a)
		pt.CreateAttr("LeftDirection", a)
		pt.CreateAttr("RightDirection", a)
	}

	pref := el.CreateElement("TextFramePreference")
	pref.CreateAttr("TextColumnFixedWidth", fnum(f.w))

	return serialize(doc)
}

// renderStory produces the story member markup: an optional bold title run
// followed by an optional body run. All user text goes through Escape.
func renderStory(st *story) []byte {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(`<idPkg:Story xmlns:idPkg="` + pkgNamespace + `" DOMVersion="` + domVersion + `">` + "\n")
	sb.WriteString(`  <Story Self="` + st.id + `" TrackChanges="false" StoryTitle="$ID/" AppliedTOCStyle="n" AppliedNamedGrid="n">` + "\n")
	sb.WriteString(`    <StoryPreference OpticalMarginAlignment="false" OpticalMarginSize="12" FrameType="TextFrameType" StoryOrientation="Horizontal" StoryDirection="LeftToRightDirection"/>` + "\n")
	sb.WriteString(`    <ParagraphStyleRange AppliedParagraphStyle="ParagraphStyle/$ID/NormalParagraphStyle">` + "\n")
	if len(st.title) != 0 {
		sb.WriteString(`      <CharacterStyleRange AppliedCharacterStyle="CharacterStyle/$ID/[No character style]" FontStyle="Bold" PointSize="14">` + "\n")
		sb.WriteString(`        <Content>` + Escape(st.title) + `</Content>` + "\n")
		sb.WriteString(`        <Br/>` + "\n")
		sb.WriteString(`      </CharacterStyleRange>` + "\n")
	}
	if len(st.text) != 0 {
		sb.WriteString(`      <CharacterStyleRange AppliedCharacterStyle="CharacterStyle/$ID/[No character style]" PointSize="10">` + "\n")
		sb.WriteString(`        <Content>` + Escape(st.text) + `</Content>` + "\n")
		sb.WriteString(`      </CharacterStyleRange>` + "\n")
	}
	sb.WriteString(`    </ParagraphStyleRange>` + "\n")
	sb.WriteString(`  </Story>` + "\n")
	sb.WriteString(`</idPkg:Story>` + "\n")

	return []byte(sb.String())
}
