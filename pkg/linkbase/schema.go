package linkbase

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xbrlview/xbrlview/pkg/xbrl"
)

type schemaXML struct {
	XMLName   xml.Name      `xml:"schema"`
	Elements  []elementXML  `xml:"element"`
	RoleTypes []roleTypeXML `xml:"annotation>appinfo>roleType"`
}

type elementXML struct {
	Name       string `xml:"name,attr"`
	Balance    string `xml:"balance,attr"`
	PeriodType string `xml:"periodType,attr"`
	Abstract   string `xml:"abstract,attr"`
}

type roleTypeXML struct {
	RoleURI    string   `xml:"roleURI,attr"`
	Definition string   `xml:"definition"`
	UsedOn     []string `xml:"usedOn"`
}

// LoadSchema parses a taxonomy schema's element declarations and role
// types into flat tables. Element IDs are qualified with the given
// namespace prefix, matching how facts and arcs reference them.
func LoadSchema(r io.Reader, prefix string) (xbrl.Tables, error) {
	var doc schemaXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return xbrl.Tables{}, fmt.Errorf("failed to parse schema: %w", err)
	}

	var t xbrl.Tables
	for _, e := range doc.Elements {
		if e.Name == "" {
			continue
		}
		id := e.Name
		if prefix != "" {
			id = prefix + ":" + e.Name
		}
		t.Elements = append(t.Elements, xbrl.Element{
			ID:         id,
			Balance:    e.Balance,
			PeriodType: e.PeriodType,
			Abstract:   e.Abstract == "true",
		})
	}
	for _, rt := range doc.RoleTypes {
		t.Roles = append(t.Roles, xbrl.Role{
			ID:         rt.RoleURI,
			Type:       strings.Join(rt.UsedOn, ","),
			Definition: strings.TrimSpace(rt.Definition),
		})
	}
	return t, nil
}
