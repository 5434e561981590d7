// Package edgar talks to the SEC's EDGAR system: company submission
// feeds, filing documents, and the XBRL linkbase attachments published
// alongside each inline filing.
package edgar

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

//go:embed tickers.json
var tickersJSON []byte

type TickerData struct {
	CIKStr int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

var TickersData map[string]TickerData

func init() {
	if err := json.Unmarshal(tickersJSON, &TickersData); err != nil {
		panic(fmt.Sprintf("failed to parse tickers data: %v", err))
	}
}

// Filing is one row of a company's submission feed.
type Filing struct {
	CIK             string
	AccessionNumber string `json:"accessionNumber"`
	FilingDate      string `json:"filingDate"`
	ReportDate      string `json:"reportDate"`
	Form            string `json:"form"`
	IsXBRL          int    `json:"isXBRL"`
	IsInlineXBRL    int    `json:"isInlineXBRL"`
	PrimaryDocument string `json:"primaryDocument"`
}

// AccessionPath returns the accession number with hyphens stripped, as
// EDGAR archive URLs expect it.
func (f Filing) AccessionPath() string {
	return strings.ReplaceAll(f.AccessionNumber, "-", "")
}

func (f Filing) URL() string {
	return fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%s/%s/%s",
		f.CIK, f.AccessionPath(), f.PrimaryDocument)
}

// Filings is the columnar filing list EDGAR serves in submission feeds.
type Filings struct {
	Recent struct {
		AccessionNumber []string `json:"accessionNumber"`
		FilingDate      []string `json:"filingDate"`
		ReportDate      []string `json:"reportDate"`
		Form            []string `json:"form"`
		IsXBRL          []int    `json:"isXBRL"`
		IsInlineXBRL    []int    `json:"isInlineXBRL"`
		PrimaryDocument []string `json:"primaryDocument"`
	} `json:"recent"`
}

func (f Filings) Index(i int) Filing {
	return Filing{
		AccessionNumber: f.Recent.AccessionNumber[i],
		FilingDate:      f.Recent.FilingDate[i],
		ReportDate:      f.Recent.ReportDate[i],
		Form:            f.Recent.Form[i],
		IsXBRL:          f.Recent.IsXBRL[i],
		IsInlineXBRL:    f.Recent.IsInlineXBRL[i],
		PrimaryDocument: f.Recent.PrimaryDocument[i],
	}
}

// Search returns the most recent filing of the given form that carries
// XBRL data. Statement reconstruction needs the tagged facts, so plain
// paper-style filings are skipped.
func (f Filings) Search(cik, formName string) (Filing, bool) {
	for i, name := range f.Recent.Form {
		if name != formName || f.Recent.IsXBRL[i] != 1 {
			continue
		}
		filing := f.Index(i)
		filing.CIK = cik
		return filing, true
	}
	return Filing{}, false
}

type Submissions struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings Filings  `json:"filings"`
}

// FilingIndex is the directory listing EDGAR serves for one accession.
type FilingIndex struct {
	Directory struct {
		Items []IndexItem `json:"item"`
	} `json:"directory"`
}

type IndexItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Linkbases picks the XBRL attachment names out of a filing's
// directory listing: the presentation/calculation/definition/label
// linkbase files and the company's taxonomy schema.
func (fi FilingIndex) Linkbases() (linkbases []string, schema string) {
	for _, item := range fi.Directory.Items {
		name := strings.ToLower(item.Name)
		switch {
		case strings.HasSuffix(name, "_pre.xml"),
			strings.HasSuffix(name, "_cal.xml"),
			strings.HasSuffix(name, "_def.xml"),
			strings.HasSuffix(name, "_lab.xml"):
			linkbases = append(linkbases, item.Name)
		case strings.HasSuffix(name, ".xsd"):
			schema = item.Name
		}
	}
	return linkbases, schema
}

// Ticker2CIK returns the CIK string for a given ticker symbol
func Ticker2CIK(ticker string) (string, error) {
	for _, data := range TickersData {
		if data.Ticker == ticker {
			return strconv.Itoa(data.CIKStr), nil
		}
	}
	return "", fmt.Errorf("ticker %s not found", ticker)
}

func CIK2Ticker(cik string) (string, error) {
	for _, data := range TickersData {
		if cik == strconv.Itoa(data.CIKStr) {
			return data.Ticker, nil
		}
	}
	return "", fmt.Errorf("ticker %v not found", cik)
}

// Ticker2CompanyName returns the company title for a given ticker symbol
func Ticker2CompanyName(ticker string) (string, error) {
	for _, data := range TickersData {
		if data.Ticker == ticker {
			return data.Title, nil
		}
	}
	return "", fmt.Errorf("ticker %s not found", ticker)
}
