// Package ixbrl parses the iXBRL (Inline eXtensible Business Reporting
// Language) XML grammar embedded in the XHTML filings businesses
// publish to the SEC's EDGAR system, and flattens the parsed facts and
// contexts into the relational tables the reconstruction engine reads.
package ixbrl

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xbrlview/xbrlview/pkg/xbrl"
)

type nodeRegistry map[string]func() interface{}

var registry = nodeRegistry{
	"ix:nonfraction": func() interface{} { return &NonFraction{} },
	"xbrli:context":  func() interface{} { return &Context{} },
	"xbrli:unit":     func() interface{} { return &Unit{} },
}

// ParsedNode represents a parsed namespaced node with its unmarshalled struct
type ParsedNode struct {
	Node   *html.Node
	Struct interface{}
	Type   string
}

// Parse parses an XHTML document and returns parsed iXBRL nodes with
// each fact's context resolved.
func Parse(r io.Reader) ([]*ParsedNode, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var parsedNodes []*ParsedNode
	collectAndParseNodes(doc, &parsedNodes)
	contexts := getContexts(parsedNodes)
	for _, p := range parsedNodes {
		if nf, ok := p.Struct.(*NonFraction); ok {
			for _, c := range contexts {
				if c.ID == nf.ContextRef {
					nf.Context = c
				}
			}
		}
	}
	return parsedNodes, nil
}

// collectAndParseNodes recursively traverses the HTML tree and
// collects/parses nodes with colons, as a fuzzy test for
// whether or not they are likely to correspond to iXBRL tags.
func collectAndParseNodes(n *html.Node, nodes *[]*ParsedNode) {
	if n.Type == html.ElementNode && strings.Contains(n.Data, ":") {
		parsedNode := &ParsedNode{
			Node: n,
			Type: n.Data,
		}

		// Try to unmarshal into a registered struct type
		if constructor, exists := registry[n.Data]; exists {
			structInstance := constructor()
			var s strings.Builder
			if err := html.Render(&s, n); err != nil {
				fmt.Printf("error re-serializing xml: %v\n", err)
				return
			}
			if err := xml.Unmarshal([]byte(s.String()), structInstance); err != nil {
				fmt.Printf("error conforming xml: %v\n", err)
				return
			}
			parsedNode.Struct = structInstance
		}

		*nodes = append(*nodes, parsedNode)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectAndParseNodes(c, nodes)
	}
}

// NonFraction represents ix:nonfraction elements: numeric facts that
// can be scaled (thousands, millions, etc.) and optionally sign-flipped.
type NonFraction struct {
	XMLName    xml.Name `xml:"nonfraction"`
	UnitRef    string   `xml:"unitref,attr"`
	Decimals   string   `xml:"decimals,attr"`
	Name       string   `xml:"name,attr"`
	Format     string   `xml:"format,attr"`
	Scale      string   `xml:"scale,attr"`
	Sign       string   `xml:"sign,attr"`
	ID         string   `xml:"id,attr"`
	Content    string   `xml:",chardata"`
	ContextRef string   `xml:"contextref,attr"`
	Context    *Context
}

// scaleExponent returns the power-of-ten exponent the raw content must
// be multiplied by. An absent or malformed scale attribute means the
// content is already at full magnitude.
func (nf *NonFraction) scaleExponent() int {
	scale, err := strconv.Atoi(nf.Scale)
	if err != nil {
		return 0
	}
	return scale
}

// Context represents xbrli:context elements. These provide dimensional context for facts,
// including entity identification, time period, and segment information.
type Context struct {
	XMLName xml.Name `xml:"context"`
	ID      string   `xml:"id,attr"`
	Entity  Entity   `xml:"entity"`
	Period  Period   `xml:"period"`
}

// Period represents xbrli:period elements within contexts. These define the time period for a fact,
// either as an instant in time or a duration with start and end dates.
type Period struct {
	XMLName   xml.Name `xml:"period"`
	StartDate string   `xml:"startdate"`
	Instant   string   `xml:"instant"`
	EndDate   string   `xml:"enddate"`
}

// Entity represents xbrli:entity elements. These identify the reporting entity
// with unique identifier and optional dimensional segments.
type Entity struct {
	Identifier Identifier `xml:"identifier"`
	Segment    Segment    `xml:"segment"`
}

// Identifier represents xbrli:identifier elements. These provide unique identifier for an entity
// using a specific identification scheme (e.g., SEC CIK, LEI).
type Identifier struct {
	XMLName xml.Name `xml:"identifier"`
	Scheme  string   `xml:"scheme,attr"`
	Content string   `xml:",chardata"`
}

// Segment represents xbrli:segment elements. These provide dimensional breakdown of entity context
// containing explicit and typed members for detailed categorization.
type Segment struct {
	XMLName         xml.Name         `xml:"segment"`
	ExplicitMembers []ExplicitMember `xml:"explicitmember"`
	TypedMembers    []TypedMember    `xml:"typedmember"`
}

// ExplicitMember represents xbrldi:explicitMember elements. These define explicit dimensional members
// that specify categories or breakdowns within a segment.
type ExplicitMember struct {
	XMLName   xml.Name `xml:"explicitmember"`
	Dimension string   `xml:"dimension,attr"`
	Content   string   `xml:",chardata"`
}

// TypedMember represents xbrldi:typedMember elements. These provide typed dimensional members
// that enable flexible dimensional categorization using custom data types.
type TypedMember struct {
	XMLName   xml.Name `xml:"typedmember"`
	Dimension string   `xml:"dimension,attr"`
	Content   string   `xml:",chardata"`
}

// Unit represents xbrli:unit elements. These define the unit of measurement for numeric facts
// (e.g., USD, shares, square feet, percentages).
type Unit struct {
	XMLName xml.Name `xml:"unit"`
	ID      string   `xml:"id,attr"`
	Measure Measure  `xml:"measure"`
}

// Measure represents xbrli:measure elements. These specify the actual measurement unit
// using standardized unit identifiers or custom measures.
type Measure struct {
	XMLName xml.Name `xml:"measure"`
	Content string   `xml:",chardata"`
}

func getContexts(nodes []*ParsedNode) []*Context {
	var contexts []*Context
	for _, node := range nodes {
		if ctx, ok := node.Struct.(*Context); ok {
			contexts = append(contexts, ctx)
		}
	}
	return contexts
}

// Search for a particular iXBRL node, amongst a set of previously
// parsed nodes, matching a predicate.
func Search[K any](nodes []*ParsedNode, predicate func(val *K) bool) *K {
	for _, node := range nodes {
		if t, ok := node.Struct.(*K); ok {
			if predicate(t) {
				return t
			}
		}
	}
	return nil
}

// Tables flattens parsed iXBRL nodes into the relational fact and
// context tables. Context dimension members (explicit and typed) become
// dimension columns, fact scale attributes become the decimal exponent,
// and a sign attribute of "-" negates the raw content.
func Tables(nodes []*ParsedNode) xbrl.Tables {
	var t xbrl.Tables
	for _, node := range nodes {
		switch n := node.Struct.(type) {
		case *Context:
			ctx := xbrl.Context{
				ID:        n.ID,
				StartDate: n.Period.StartDate,
				EndDate:   n.Period.EndDate,
				Instant:   n.Period.Instant,
			}
			for _, m := range n.Entity.Segment.ExplicitMembers {
				if ctx.Dimensions == nil {
					ctx.Dimensions = make(map[string]string)
				}
				ctx.Dimensions[m.Dimension] = strings.TrimSpace(m.Content)
			}
			for _, m := range n.Entity.Segment.TypedMembers {
				if ctx.Dimensions == nil {
					ctx.Dimensions = make(map[string]string)
				}
				ctx.Dimensions[m.Dimension] = strings.TrimSpace(m.Content)
			}
			t.Contexts = append(t.Contexts, ctx)
		case *NonFraction:
			value := strings.TrimSpace(n.Content)
			if n.Sign == "-" && value != "" {
				value = "-" + value
			}
			t.Facts = append(t.Facts, xbrl.Fact{
				ContextID: n.ContextRef,
				ElementID: n.Name,
				Value:     value,
				Decimals:  n.scaleExponent(),
				UnitID:    n.UnitRef,
			})
		}
	}
	return t
}

// Load parses an inline XBRL document and returns its flat tables.
func Load(r io.Reader) (xbrl.Tables, error) {
	nodes, err := Parse(r)
	if err != nil {
		return xbrl.Tables{}, fmt.Errorf("failed to parse inline document: %w", err)
	}
	return Tables(nodes), nil
}
