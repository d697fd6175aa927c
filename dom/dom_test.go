package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return root
}

func TestIsVisible_FailsClosed(t *testing.T) {
	// WHAT: nil and non-element inputs never panic and report invisible.
	// WHY: every locator leans on this; a panic here takes down a capture.
	if IsVisible(nil) {
		t.Error("nil node reported visible")
	}
	text := &html.Node{Type: html.TextNode, Data: "hello"}
	if IsVisible(text) {
		t.Error("text node reported visible")
	}
}

func TestIsVisible_HiddenMarkers(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want bool
	}{
		{"plain", `<div id="x">hi</div>`, true},
		{"hidden attr", `<div id="x" hidden>hi</div>`, false},
		{"aria-hidden", `<div id="x" aria-hidden="true">hi</div>`, false},
		{"aria-hidden false", `<div id="x" aria-hidden="false">hi</div>`, true},
		{"display none", `<div id="x" style="display:none">hi</div>`, false},
		{"visibility hidden", `<div id="x" style="visibility: hidden;">hi</div>`, false},
		{"annotated hidden", `<div id="x" data-rec-hid="1">hi</div>`, false},
		{"zero box", `<div id="x" data-rec-box="10,10,10,10">hi</div>`, false},
		{"zero box fixed", `<div id="x" style="position:fixed" data-rec-box="10,10,10,10">hi</div>`, true},
		{"real box", `<div id="x" data-rec-box="10,10,40,200">hi</div>`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := parse(t, tc.src)
			n := Query(root, "#x")
			if n == nil {
				t.Fatal("test element not found")
			}
			if got := IsVisible(n); got != tc.want {
				t.Errorf("IsVisible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWalk_PreOrder(t *testing.T) {
	root := parse(t, `<div id="a"><span id="b"><i id="c"></i></span><p id="d"></p></div>`)
	var ids []string
	for n := range Walk(root) {
		if id := Attr(n, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	if got := strings.Join(ids, ""); got != "abcd" {
		t.Errorf("pre-order ids = %q, want %q", got, "abcd")
	}
}

func TestWalk_ShadowTemplateContents(t *testing.T) {
	// WHAT: declarative shadow-root contents are traversed in place.
	// WHY: the host app's component framework renders through shadow roots;
	// locators must see across the boundary.
	root := parse(t, `<div id="host"><template shadowrootmode="open"><button id="inner">Version 1</button></template></div>`)
	found := false
	for n := range Walk(root) {
		if Attr(n, "id") == "inner" {
			found = true
		}
	}
	if !found {
		t.Error("shadow content not reached by Walk")
	}
}

func TestWalk_LazyStop(t *testing.T) {
	root := parse(t, `<div><p></p><p></p><p></p></div>`)
	count := 0
	for range Walk(root) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("visited %d nodes after break, want 2", count)
	}
}

func TestChildren_FlattensShadowTemplates(t *testing.T) {
	root := parse(t, `<div id="host"><span id="s1"></span><template shadowrootmode="open"><b id="s2"></b></template><span id="s3"></span></div>`)
	host := Query(root, "#host")
	kids := Children(host)
	var ids []string
	for _, k := range kids {
		ids = append(ids, Attr(k, "id"))
	}
	if got := strings.Join(ids, ","); got != "s1,s2,s3" {
		t.Errorf("children = %s, want s1,s2,s3", got)
	}
}

func TestText_BlocksAndInline(t *testing.T) {
	root := parse(t, `<div><h2>Summary</h2><p>All <b>good</b> here.</p><div style="display:none">secret</div><pre>a  b
  c</pre></div>`)
	got := Text(root)
	want := "Summary\nAll good here.\na  b\n  c"
	if got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestText_SkipsScriptStyle(t *testing.T) {
	root := parse(t, `<div><script>let x=1;</script><style>.a{}</style><p>kept</p></div>`)
	if got := Text(root); got != "kept" {
		t.Errorf("Text = %q, want %q", got, "kept")
	}
}

func TestQueryAll_Order(t *testing.T) {
	root := parse(t, `<div><a id="1" class="x"></a><button id="2"></button><a id="3" class="x"></a></div>`)
	nodes := QueryAll(root, "button, a.x")
	var ids []string
	for _, n := range nodes {
		ids = append(ids, Attr(n, "id"))
	}
	if got := strings.Join(ids, ","); got != "1,2,3" {
		t.Errorf("query order = %s, want document order 1,2,3", got)
	}
}

func TestQueryAll_AttrAndClassChain(t *testing.T) {
	root := parse(t, `<div><span role="tab" class="a b">t1</span><span role="tab" class="a">t2</span></div>`)
	if n := len(QueryAll(root, "span.a.b[role=tab]")); n != 1 {
		t.Errorf("matches = %d, want 1", n)
	}
	if n := len(QueryAll(root, "[role=tab]")); n != 2 {
		t.Errorf("matches = %d, want 2", n)
	}
}

func TestBoxAndViewport(t *testing.T) {
	root := parse(t, `<html data-rec-vp="1280,800"><body><div id="x" data-rec-box="100,8,180,400"></div></body></html>`)
	n := Query(root, "#x")
	box, ok := Box(n)
	if !ok {
		t.Fatal("box not parsed")
	}
	if box.Height() != 80 || box.CenterY() != 140 {
		t.Errorf("box math: height=%v centerY=%v", box.Height(), box.CenterY())
	}
	vp, ok := Viewport(root)
	if !ok || vp.Bottom != 800 || vp.Right != 1280 {
		t.Errorf("viewport = %+v ok=%v", vp, ok)
	}
}

func TestFindByID(t *testing.T) {
	root := parse(t, `<div data-rec-n="1"><span data-rec-n="7">x</span></div>`)
	if n := FindByID(root, 7); n == nil || Tag(n) != "span" {
		t.Errorf("FindByID(7) = %v", n)
	}
	if n := FindByID(root, 99); n != nil {
		t.Error("FindByID(99) found phantom node")
	}
	if n := FindByID(root, 0); n != nil {
		t.Error("FindByID(0) must return nil")
	}
}
