package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText returns the concatenated text content of a node and all of its
// descendants.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var interTagWhitespace = regexp.MustCompile(`>\s+<`)

// CollapseWhitespace strips newlines and then removes every run of whitespace
// that sits directly between two tags, so that `>   <` becomes `><`.
//
// The portal pads its markup unpredictably, this makes sibling lookups and
// text reads stable.
func CollapseWhitespace(raw string) string {
	raw = strings.ReplaceAll(raw, "\r", "")
	raw = strings.ReplaceAll(raw, "\n", "")
	return interTagWhitespace.ReplaceAllString(raw, "><")
}

// ParseDocument collapses the whitespace of the raw html and parses it.
func ParseDocument(raw []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(CollapseWhitespace(string(raw))))
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText drops non-printable runes, trims the text and squashes every inner
// whitespace run into a single space.
func CleanText(text string) string {
	text = removeNonPrintable(text)
	text = strings.TrimSpace(text)
	return innerWhitespace.ReplaceAllString(text, " ")
}

type Anchor struct {
	Url  *url.URL
	Name string
}

// GetAnchors returns every anchor in the selection that has a non-empty href,
// resolved against the given base url. Hrefs that do not parse are skipped.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	var anchors []Anchor
	sel.Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		href = strings.TrimSpace(href)
		if !exists || href == "" {
			return
		}
		link, err := base.Parse(href)
		if err != nil {
			return
		}
		anchors = append(anchors, Anchor{
			Url:  link,
			Name: CleanText(s.Text()),
		})
	})
	return anchors
}
