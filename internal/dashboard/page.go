package dashboard

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/coinpulse/coinpulse/internal/storage"
)

// ThemeKey is the preference key the theme is persisted under.
const ThemeKey = "theme"

// Theme is the page's visual mode.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const (
	listSelector   = "#crypto-list"
	toggleSelector = "#theme-toggle"
	darkClass      = "dark-theme"
)

//go:embed templates/index.html
var templatesFS embed.FS

// PreferenceStore persists the theme. *storage.Store satisfies it.
type PreferenceStore interface {
	GetPreference(ctx context.Context, key string, dest any) error
	SetPreference(ctx context.Context, key string, value any) error
}

// Page is the dashboard document: a card container, a theme toggle and the
// body class that carries the theme. It is safe for concurrent use; the
// poller writes cards while HTTP handlers render and toggle.
type Page struct {
	mu    sync.RWMutex
	doc   *goquery.Document
	body  *goquery.Selection
	list  *goquery.Selection
	store PreferenceStore
	cards int
}

// NewDefaultPage builds a Page from the embedded dashboard document.
func NewDefaultPage(ctx context.Context, store PreferenceStore) (*Page, error) {
	f, err := templatesFS.Open("templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("opening page template: %w", err)
	}
	defer f.Close()
	return NewPage(ctx, f, store)
}

// NewPage parses the document in r and locates the card container
// (#crypto-list) and theme toggle (#theme-toggle). If either is missing it
// returns an *InitializationError. The persisted theme is applied before
// the page is returned.
func NewPage(ctx context.Context, r io.Reader, store PreferenceStore) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page document: %w", err)
	}

	list := doc.Find(listSelector).First()
	toggle := doc.Find(toggleSelector).First()

	var missing []string
	if list.Length() == 0 {
		missing = append(missing, listSelector)
	}
	if toggle.Length() == 0 {
		missing = append(missing, toggleSelector)
	}
	if len(missing) > 0 {
		return nil, &InitializationError{Missing: missing}
	}

	p := &Page{
		doc:   doc,
		body:  doc.Find("body").First(),
		list:  list,
		store: store,
	}

	if p.loadTheme(ctx) == ThemeDark {
		p.body.AddClass(darkClass)
	}
	return p, nil
}

// loadTheme reads the persisted theme. Anything other than "dark", including
// a missing or unreadable value, is light.
func (p *Page) loadTheme(ctx context.Context) Theme {
	var v string
	if err := p.store.GetPreference(ctx, ThemeKey, &v); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to read theme preference", "error", err)
		}
		return ThemeLight
	}
	if Theme(v) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// Theme returns the theme currently applied to the page.
func (p *Page) Theme() Theme {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.themeLocked()
}

func (p *Page) themeLocked() Theme {
	if p.body.HasClass(darkClass) {
		return ThemeDark
	}
	return ThemeLight
}

// ToggleTheme flips the dark theme class on the body and persists the
// resulting theme. If persisting fails the class change is kept and the
// error returned.
func (p *Page) ToggleTheme(ctx context.Context) (Theme, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.body.ToggleClass(darkClass)
	theme := p.themeLocked()

	if err := p.store.SetPreference(ctx, ThemeKey, string(theme)); err != nil {
		return theme, fmt.Errorf("persisting theme: %w", err)
	}
	return theme, nil
}

// SetAutoRefresh rewrites the page's meta refresh interval so a browser
// reloads at the same pace the poller updates.
func (p *Page) SetAutoRefresh(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seconds := int(interval / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	p.doc.Find(`meta[http-equiv="refresh"]`).SetAttr("content", strconv.Itoa(seconds))
}

// ReplaceCards tears down every card in the container and renders cards in
// their place.
func (p *Page) ReplaceCards(cards []Card) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.list.Empty()
	nodes := make([]*html.Node, 0, len(cards))
	for _, c := range cards {
		nodes = append(nodes, cardNode(c))
	}
	p.list.AppendNodes(nodes...)
	p.cards = len(cards)
}

// CardCount returns how many cards are currently rendered.
func (p *Page) CardCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cards
}

// Render writes the current document as HTML.
func (p *Page) Render(w io.Writer) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return html.Render(w, p.doc.Nodes[0])
}

// cardNode builds:
//
//	<div class="crypto-card">
//	  <h3>BITCOIN</h3>
//	  <p class="price">$50000.50</p>
//	  <p class="price-change down">-1.23%</p>
//	  <p class="updated">Updated 2024-01-02 15:04:05</p>
//	</div>
func cardNode(c Card) *html.Node {
	card := element(atom.Div, "crypto-card")
	card.AppendChild(withText(element(atom.H3, ""), c.Title))
	card.AppendChild(withText(element(atom.P, "price"), c.PriceText()))
	card.AppendChild(withText(element(atom.P, "price-change "+string(c.Direction)), c.ChangeText()))
	if c.Updated != "" {
		card.AppendChild(withText(element(atom.P, "updated"), "Updated "+c.Updated))
	}
	return card
}

func element(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return n
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}
