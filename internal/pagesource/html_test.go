package pagesource

import (
	"strings"
	"testing"
)

func TestHTMLParser_MarkdownLikeOutput(t *testing.T) {
	in := `<html><head><title>Handbook</title></head><body>
<h1>Welcome</h1>
<p>Opening paragraph.</p>
<ul><li>first</li><li>second</li></ul>
<table><tr><th>k</th><th>v</th></tr><tr><td>a</td><td>1</td></tr></table>
<img src="fig.png" alt="diagram">
<pre>x := 1</pre>
</body></html>`

	doc, err := (&HTMLParser{}).Parse(strings.NewReader(in), "handbook.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Handbook" {
		t.Errorf("expected title from <title>, got %q", doc.Title)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}

	text := doc.Pages[0].Text
	for _, want := range []string{
		"# Welcome",
		"Opening paragraph.",
		"- first\n- second",
		"| k | v |\n| a | 1 |",
		"![diagram](fig.png)",
		"```\nx := 1\n```",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected page to contain %q, got:\n%s", want, text)
		}
	}
}

func TestHTMLParser_HRSplitsPages(t *testing.T) {
	in := `<body><p>page one body</p><hr><p>page two body</p></body>`
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(in), "split.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}
	if !strings.Contains(doc.Pages[0].Text, "page one body") ||
		!strings.Contains(doc.Pages[1].Text, "page two body") {
		t.Errorf("unexpected split: %+v", doc.Pages)
	}
}

func TestHTMLParser_SkipsChrome(t *testing.T) {
	in := `<body><nav>menu links</nav><p>real content</p><footer>copyright</footer></body>`
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(in), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := doc.Pages[0].Text
	if strings.Contains(text, "menu links") || strings.Contains(text, "copyright") {
		t.Errorf("expected nav and footer skipped, got %q", text)
	}
	if !strings.Contains(text, "real content") {
		t.Errorf("expected body content kept, got %q", text)
	}
}

func TestHTMLParser_OrderedList(t *testing.T) {
	in := `<body><ol><li>alpha</li><li>beta</li></ol></body>`
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(in), "steps.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Pages[0].Text, "1. alpha\n2. beta") {
		t.Errorf("unexpected list rendering: %q", doc.Pages[0].Text)
	}
}
