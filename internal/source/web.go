package source

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// maxPageBytes bounds how much of a response body is read.
const maxPageBytes = 10 << 20

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Page is a fetched web document, already converted to markdown.
type Page struct {
	URL      string
	Title    string
	Markdown string
}

// IsWebURL reports whether input is an HTTP or HTTPS URL.
func IsWebURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// FetchPage downloads an HTML page and converts it to markdown.
func FetchPage(rawURL string) (Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	parsed.Fragment = ""
	cleanURL := parsed.String()

	res, err := httpClient.Get(cleanURL)
	if err != nil {
		return Page{}, fmt.Errorf("fetching %s: %w", cleanURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Page{}, fmt.Errorf("fetching %s: status %d", cleanURL, res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "text/html") {
		return Page{}, fmt.Errorf("fetching %s: unsupported content type %q", cleanURL, ct)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return Page{}, fmt.Errorf("reading %s: %w", cleanURL, err)
	}

	title := cleanURL
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body))); err == nil {
		if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
			title = t
		}
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(string(body))
	if err != nil {
		return Page{}, fmt.Errorf("converting %s to markdown: %w", cleanURL, err)
	}

	return Page{URL: cleanURL, Title: title, Markdown: markdown}, nil
}
