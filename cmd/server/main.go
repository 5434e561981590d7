package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/message"

	"github.com/xbrlview/xbrlview/pkg/config"
	"github.com/xbrlview/xbrlview/pkg/db"
	"github.com/xbrlview/xbrlview/pkg/edgar"
	"github.com/xbrlview/xbrlview/pkg/ixbrl"
	"github.com/xbrlview/xbrlview/pkg/linkbase"
	"github.com/xbrlview/xbrlview/pkg/statement"
)

//go:embed index.html
var indexHTML string

//go:embed roles.html
var rolesHTML string

//go:embed statement.html
var statementHTML string

//go:embed styles.css
var stylesCSS string

var printer = message.NewPrinter(message.MatchLanguage("en"))

// Template functions
var templateFuncs = template.FuncMap{
	"indent": func(depth int) template.CSS {
		return template.CSS(fmt.Sprintf("padding-left: %.1fem", float64(depth)*1.5))
	},
	"cell": func(row statement.Row, period string) string {
		v, ok := row.Values[period]
		if !ok || v == nil {
			return "—"
		}
		if *v < 0 {
			// Accountants' negative: (1,234) instead of -1,234.
			return printer.Sprintf("(%.0f)", -*v)
		}
		return printer.Sprintf("%.0f", *v)
	},
}

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))
var rolesTemplate = template.Must(template.New("roles").Parse(rolesHTML))
var statementTemplate = template.Must(template.New("statement").Funcs(templateFuncs).Parse(statementHTML))

// OrganizationItem represents a simplified organization with just title and path
type OrganizationItem struct {
	Title string `json:"title"` // Company name
	Path  string `json:"path"`  // URL path to access the company
}

type Server struct {
	db     *db.DB
	client *edgar.EdgarClient
	cfg    *config.Config
}

func NewServer(database *db.DB, cfg *config.Config) *Server {
	return &Server{
		db:     database,
		client: edgar.NewEdgarClient(cfg.Edgar.UserAgent, cfg.Edgar.RateLimit),
		cfg:    cfg,
	}
}

type roleItem struct {
	ID    string
	Title string
}

type rolesPage struct {
	CompanyName string
	CIK         string
	Ticker      string
	Roles       []roleItem
}

type statementPage struct {
	CompanyName string
	CIK         string
	Statement   *statement.Statement
}

// handleIndex serves the root index page with company search
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := indexTemplate.Execute(w, nil); err != nil {
		http.Error(w, fmt.Sprintf("Error rendering template: %v", err), http.StatusInternalServerError)
	}
}

// handleTicker handles GET /ticker/{ticker} by resolving to a CIK
func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.PathValue("ticker"))
	if ticker == "" {
		http.Error(w, "Ticker parameter is required", http.StatusBadRequest)
		return
	}
	cik, err := edgar.Ticker2CIK(ticker)
	if err != nil {
		http.Error(w, fmt.Sprintf("Ticker %s not found: %v", ticker, err), http.StatusNotFound)
		return
	}
	r.SetPathValue("cik", cik)
	s.handleRoles(w, r)
}

// handleRoles handles GET /cik/{cik}: the list of reporting views
// reconstructed from the company's latest tagged filing.
func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	cik := r.PathValue("cik")
	if cik == "" {
		http.Error(w, "CIK parameter is required", http.StatusBadRequest)
		return
	}

	if err := s.ensureStatements(r.Context(), cik); err != nil {
		http.Error(w, fmt.Sprintf("Failed to build statements: %v", err), http.StatusInternalServerError)
		return
	}

	roles, err := s.db.ListStatementRoles(cik)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list statements: %v", err), http.StatusInternalServerError)
		return
	}

	page := rolesPage{CIK: cik, CompanyName: s.companyName(cik)}
	if ticker, err := edgar.CIK2Ticker(cik); err == nil {
		page.Ticker = ticker
	}
	for id, title := range roles {
		page.Roles = append(page.Roles, roleItem{ID: id, Title: title})
	}
	sort.Slice(page.Roles, func(i, j int) bool { return page.Roles[i].Title < page.Roles[j].Title })

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rolesTemplate.Execute(w, page); err != nil {
		log.Printf("Failed to execute roles template: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleStatement handles GET /cik/{cik}/statement?role={roleID}
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	cik := r.PathValue("cik")
	roleID := r.URL.Query().Get("role")
	if cik == "" || roleID == "" {
		http.Error(w, "CIK and role parameters are required", http.StatusBadRequest)
		return
	}

	if err := s.ensureStatements(r.Context(), cik); err != nil {
		http.Error(w, fmt.Sprintf("Failed to build statements: %v", err), http.StatusInternalServerError)
		return
	}

	st, err := s.db.GetStatement(cik, roleID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Statement not found: %v", err), http.StatusNotFound)
		return
	}

	page := statementPage{CIK: cik, CompanyName: s.companyName(cik), Statement: st}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statementTemplate.Execute(w, page); err != nil {
		log.Printf("Failed to execute statement template: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleOrganizationsJSON handles GET /api/organizations.json for the search box
func (s *Server) handleOrganizationsJSON(w http.ResponseWriter, r *http.Request) {
	var organizations []OrganizationItem
	for _, ticker := range edgar.TickersData {
		organizations = append(organizations, OrganizationItem{
			Title: ticker.Title,
			Path:  fmt.Sprintf("/ticker/%s", ticker.Ticker),
		})
	}
	sort.Slice(organizations, func(i, j int) bool { return organizations[i].Title < organizations[j].Title })

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := json.NewEncoder(w).Encode(organizations); err != nil {
		http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
	}
}

// handleSearch handles GET /api/search?q={query} using the FTS cache
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "Query parameter q is required", http.StatusBadRequest)
		return
	}

	items, err := s.db.SearchCache(query, 10)
	if err != nil {
		log.Printf("Search failed for %q: %v", query, err)
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}

	results := make([]OrganizationItem, 0, len(items))
	for _, item := range items {
		results = append(results, OrganizationItem{Title: item.Title, Path: item.Path})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// handleStyles serves the shared CSS file
func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write([]byte(stylesCSS))
}

func (s *Server) companyName(cik string) string {
	if ticker, err := edgar.CIK2Ticker(cik); err == nil {
		if name, err := edgar.Ticker2CompanyName(ticker); err == nil {
			return name
		}
	}
	return fmt.Sprintf("CIK %s", cik)
}

// ensureStatements rebuilds a company's statements when the cached
// copies are missing or older than the configured max age.
func (s *Server) ensureStatements(ctx context.Context, cik string) error {
	stale, err := s.db.AreStatementsStale(cik, s.cfg.Cache.MaxAge)
	if err != nil {
		log.Printf("Error checking statement staleness for CIK %s: %v", cik, err)
		stale = true
	}
	if !stale {
		return nil
	}

	log.Printf("Statements for CIK %s are stale or missing, rebuilding from EDGAR", cik)
	return s.downloadAndBuild(ctx, cik)
}

// downloadAndBuild fetches the company's latest tagged annual filing
// with its linkbase attachments, flattens everything into tables, and
// reconstructs one statement per presentation role.
func (s *Server) downloadAndBuild(ctx context.Context, cik string) error {
	submissions, err := s.client.LoadSubmissions(ctx, cik)
	if err != nil {
		return fmt.Errorf("failed to load submissions: %w", err)
	}

	filing, found := submissions.Filings.Search(cik, "10-K")
	if !found {
		filing, found = submissions.Filings.Search(cik, "10-Q")
	}
	if !found {
		return fmt.Errorf("no tagged 10-K or 10-Q filing found for CIK %s", cik)
	}
	log.Printf("Found %s filing %s for CIK %s", filing.Form, filing.AccessionNumber, cik)

	document, err := s.client.LoadDocument(ctx, cik, filing)
	if err != nil {
		return fmt.Errorf("failed to download filing document: %w", err)
	}
	if err := s.db.StoreFiling(cik, filing, document); err != nil {
		log.Printf("Warning: failed to store filing for CIK %s: %v", cik, err)
	}

	tables, err := ixbrl.Load(bytes.NewReader(document))
	if err != nil {
		return fmt.Errorf("failed to parse inline filing: %w", err)
	}

	index, err := s.client.LoadFilingIndex(ctx, cik, filing)
	if err != nil {
		return fmt.Errorf("failed to load filing index: %w", err)
	}
	linkbases, schema := index.Linkbases()
	for _, name := range linkbases {
		content, err := s.client.LoadAttachment(ctx, cik, filing, name)
		if err != nil {
			log.Printf("Failed to download linkbase %s: %v", name, err)
			continue
		}
		if err := s.db.StoreAttachment(filing.AccessionNumber, name, content); err != nil {
			log.Printf("Warning: failed to store attachment %s: %v", name, err)
		}
		partial, err := linkbase.Load(bytes.NewReader(content))
		if err != nil {
			log.Printf("Failed to parse linkbase %s: %v", name, err)
			continue
		}
		tables.Merge(partial)
	}
	if schema != "" {
		content, err := s.client.LoadAttachment(ctx, cik, filing, schema)
		if err != nil {
			log.Printf("Failed to download schema %s: %v", schema, err)
		} else {
			partial, err := linkbase.LoadSchema(bytes.NewReader(content), schemaPrefix(schema))
			if err != nil {
				log.Printf("Failed to parse schema %s: %v", schema, err)
			} else {
				tables.Merge(partial)
			}
		}
	}

	companyName := submissions.Name
	if companyName == "" {
		companyName = s.companyName(cik)
	}

	var built int
	for _, roleID := range tables.PresentationRoles() {
		st, err := statement.Build(&tables, roleID, s.cfg.LabelLang)
		if err != nil {
			// Structural problems abort a single role, not the filing.
			log.Printf("Skipping role %s for CIK %s: %v", roleID, cik, err)
			continue
		}
		if !st.Report.OK() {
			log.Printf("Role %s for CIK %s built with %d truncated branches, %d skipped facts",
				roleID, cik, len(st.Report.Cycles), len(st.Report.FactErrors))
		}
		if err := s.db.StoreStatement(cik, companyName, st); err != nil {
			log.Printf("Warning: failed to store statement for role %s: %v", roleID, err)
			continue
		}
		built++
	}
	if built == 0 {
		return fmt.Errorf("no statements could be reconstructed for CIK %s", cik)
	}
	return nil
}

// seedSearchCache fills the FTS table from the embedded ticker list so
// the search box works before anything has been fetched from EDGAR.
func seedSearchCache(database *db.DB) error {
	items := make([]db.SearchCacheItem, 0, len(edgar.TickersData))
	for _, ticker := range edgar.TickersData {
		items = append(items, db.SearchCacheItem{
			Title: fmt.Sprintf("%s (%s)", ticker.Title, ticker.Ticker),
			Path:  fmt.Sprintf("/ticker/%s", ticker.Ticker),
		})
	}
	return database.StoreSearchCacheItems(items)
}

// schemaPrefix derives the taxonomy namespace prefix from a company
// schema filename: "aapl-20230930.xsd" declares acme-style element IDs
// under the "aapl" prefix.
func schemaPrefix(name string) string {
	base := strings.TrimSuffix(name, ".xsd")
	if i := strings.Index(base, "-"); i > 0 {
		return base[:i]
	}
	return base
}

func main() {
	cfgPath := os.Getenv("XBRLVIEW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	server := NewServer(database, cfg)

	if err := seedSearchCache(database); err != nil {
		log.Printf("Warning: failed to seed search cache: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cik/{cik}", server.handleRoles)
	mux.HandleFunc("GET /cik/{cik}/statement", server.handleStatement)
	mux.HandleFunc("GET /ticker/{ticker}", server.handleTicker)
	mux.HandleFunc("GET /api/organizations.json", server.handleOrganizationsJSON)
	mux.HandleFunc("GET /api/search", server.handleSearch)
	mux.HandleFunc("GET /health", server.handleHealth)
	mux.HandleFunc("GET /styles.css", server.handleStyles)
	mux.HandleFunc("GET /", server.handleIndex)

	log.Printf("Starting xbrlview server on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
