// Package linkbase parses XBRL linkbase documents — the presentation,
// calculation, definition and label link files published alongside a
// filing — into the flat arc and label tables the reconstruction
// engine reads. XLink locators are resolved so that arcs reference
// concept IDs directly rather than document-local labels.
package linkbase

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xbrlview/xbrlview/pkg/xbrl"
)

type linkbaseXML struct {
	XMLName           xml.Name       `xml:"linkbase"`
	RoleRefs          []roleRefXML   `xml:"roleRef"`
	PresentationLinks []extendedLink `xml:"presentationLink"`
	CalculationLinks  []extendedLink `xml:"calculationLink"`
	DefinitionLinks   []extendedLink `xml:"definitionLink"`
	LabelLinks        []labelLink    `xml:"labelLink"`
}

type roleRefXML struct {
	RoleURI string `xml:"roleURI,attr"`
	Href    string `xml:"href,attr"`
}

type extendedLink struct {
	Role             string   `xml:"role,attr"`
	Locs             []locXML `xml:"loc"`
	PresentationArcs []arcXML `xml:"presentationArc"`
	CalculationArcs  []arcXML `xml:"calculationArc"`
	DefinitionArcs   []arcXML `xml:"definitionArc"`
}

type locXML struct {
	Href  string `xml:"href,attr"`
	Label string `xml:"label,attr"`
}

type arcXML struct {
	From           string `xml:"from,attr"`
	To             string `xml:"to,attr"`
	Order          string `xml:"order,attr"`
	PreferredLabel string `xml:"preferredLabel,attr"`
	Arcrole        string `xml:"arcrole,attr"`
	Weight         string `xml:"weight,attr"`
}

type labelLink struct {
	Locs      []locXML   `xml:"loc"`
	Labels    []labelXML `xml:"label"`
	LabelArcs []arcXML   `xml:"labelArc"`
}

type labelXML struct {
	Label string `xml:"label,attr"`
	Role  string `xml:"role,attr"`
	Lang  string `xml:"lang,attr"`
	Text  string `xml:",chardata"`
}

// Load parses one linkbase document into flat tables. A single file
// usually carries just one kind of link (EDGAR publishes _pre.xml,
// _cal.xml, _def.xml and _lab.xml separately), but mixed files work
// too.
func Load(r io.Reader) (xbrl.Tables, error) {
	var doc linkbaseXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return xbrl.Tables{}, fmt.Errorf("failed to parse linkbase: %w", err)
	}

	var t xbrl.Tables
	for _, ref := range doc.RoleRefs {
		t.Roles = append(t.Roles, xbrl.Role{ID: ref.RoleURI})
	}
	for _, link := range doc.PresentationLinks {
		t.Presentation = append(t.Presentation, link.arcs(xbrl.Presentation, link.PresentationArcs)...)
	}
	for _, link := range doc.CalculationLinks {
		t.Calculation = append(t.Calculation, link.arcs(xbrl.Calculation, link.CalculationArcs)...)
	}
	for _, link := range doc.DefinitionLinks {
		t.Definition = append(t.Definition, link.arcs(xbrl.Definition, link.DefinitionArcs)...)
	}
	for _, link := range doc.LabelLinks {
		t.Labels = append(t.Labels, link.labels()...)
	}
	return t, nil
}

// arcs resolves an extended link's arcs through its locators into flat
// rows. Arcs pointing at an unknown locator are dropped: a document
// that references concepts it never located cannot be wired anyway.
func (l extendedLink) arcs(kind xbrl.ArcKind, raw []arcXML) []xbrl.Arc {
	concepts := make(map[string]string, len(l.Locs))
	for _, loc := range l.Locs {
		concepts[loc.Label] = ConceptFromHref(loc.Href)
	}

	var arcs []xbrl.Arc
	for _, a := range raw {
		from, okFrom := concepts[a.From]
		to, okTo := concepts[a.To]
		if !okFrom || !okTo {
			continue
		}
		weight := 0.0
		if a.Weight != "" {
			if parsed, err := strconv.ParseFloat(a.Weight, 64); err == nil {
				weight = parsed
			}
		}
		arcs = append(arcs, xbrl.Arc{
			Kind:           kind,
			RoleID:         l.Role,
			FromID:         from,
			ToID:           to,
			Order:          a.Order,
			PreferredLabel: a.PreferredLabel,
			Arcrole:        a.Arcrole,
			Weight:         weight,
		})
	}
	return arcs
}

// labels resolves a label link's resources through its locators and
// label arcs into flat rows, one per (concept, role, lang).
func (l labelLink) labels() []xbrl.Label {
	concepts := make(map[string]string, len(l.Locs))
	for _, loc := range l.Locs {
		concepts[loc.Label] = ConceptFromHref(loc.Href)
	}
	resources := make(map[string][]labelXML)
	for _, lab := range l.Labels {
		resources[lab.Label] = append(resources[lab.Label], lab)
	}

	var labels []xbrl.Label
	for _, a := range l.LabelArcs {
		concept, ok := concepts[a.From]
		if !ok {
			continue
		}
		for _, lab := range resources[a.To] {
			role := lab.Role
			if role == "" {
				role = xbrl.StdLabelRole
			}
			labels = append(labels, xbrl.Label{
				ElementID: concept,
				Role:      role,
				Lang:      lab.Lang,
				Text:      strings.TrimSpace(lab.Text),
			})
		}
	}
	return labels
}

// ConceptFromHref turns an XLink locator href like
// "us-gaap-2023.xsd#us-gaap_Assets" into the concept ID
// "us-gaap:Assets". The fragment's first underscore separates the
// namespace prefix from the local name.
func ConceptFromHref(href string) string {
	fragment := href
	if i := strings.Index(href, "#"); i >= 0 {
		fragment = href[i+1:]
	}
	if i := strings.Index(fragment, "_"); i >= 0 {
		return fragment[:i] + ":" + fragment[i+1:]
	}
	return fragment
}
