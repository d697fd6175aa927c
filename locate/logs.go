package locate

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
	"github.com/hazyhaar/recolte/extract"
)

// LogsTab describes the "Logs" tab button when the page renders one.
type LogsTab struct {
	Node     *html.Node
	Selected bool
}

// FindLogsTab locates a visible button/tab/link whose label starts with
// "logs". Nil when the page has no logs tab (logs already inline).
func FindLogsTab(scope *html.Node) *LogsTab {
	for _, n := range dom.QueryAll(scope, "button, [role=tab], a") {
		if !dom.IsVisible(n) {
			continue
		}
		if strings.HasPrefix(dom.NormLabel(dom.Text(n)), "logs") {
			return &LogsTab{
				Node:     n,
				Selected: dom.Attr(n, "aria-selected") == "true",
			}
		}
	}
	return nil
}

// LogsContainer finds the container holding the execution transcript.
//
// The structural signature comes first: a visible container whose first
// three visible children concatenate into a header block (prompt echo,
// crumbs, "Version N", environment setup) and whose remaining children
// carry more than 200 characters. Fallbacks: the longest visible tab panel,
// then the largest visible pre/code/div. Callers that can refresh the
// snapshot poll this while the tab content settles.
func LogsContainer(scope *html.Node) *html.Node {
	if scope == nil {
		return nil
	}

	if n := structuredLogsContainer(scope); n != nil {
		return n
	}

	if best := pickLongest(visibleOnly(dom.QueryAll(scope, "[role=tabpanel], .tabpanel, .tab-panel"))); best != nil {
		return best
	}
	return pickLongest(visibleOnly(dom.QueryAll(scope, "pre, code, div")))
}

func structuredLogsContainer(scope *html.Node) *html.Node {
	for _, el := range dom.QueryAll(scope, "div, section, article") {
		if !dom.IsVisible(el) {
			continue
		}
		kids := dom.VisibleChildren(el)
		if len(kids) < 3 {
			continue
		}
		var first3 []string
		for _, k := range kids[:3] {
			first3 = append(first3, dom.Text(k))
		}
		if !extract.LooksLikeHeaderBlock(strings.Join(first3, "\n")) {
			continue
		}
		tailLen := 0
		for _, k := range kids[3:] {
			tailLen += len(dom.Text(k))
		}
		if tailLen > 200 {
			return el
		}
	}
	return nil
}
