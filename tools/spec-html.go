package tools

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/Comcast/rxfsm/spec"
	. "github.com/Comcast/rxfsm/util/testutil"

	md "github.com/russross/blackfriday/v2"
)

// RenderHTML writes HTML documentation for the definition.  Doc
// strings are Markdown.
func RenderHTML(s *spec.Spec, out io.Writer) error {
	var err error
	f := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(out, format+"\n", args...)
		}
	}
	doc := func(class, src string) {
		if src != "" {
			f(`<div class="%s doc">%s</div>`, class, md.Run([]byte(src)))
		}
	}
	code := func(src string) {
		f(`<div class="code"><pre>%s</pre></div>`, html.EscapeString(src))
	}
	guard := func(g *spec.Guard) {
		switch {
		case g == nil:
		case g.JS != "":
			f(`<tr><td>guard</td><td>`)
			code(g.JS)
			f(`</td></tr>`)
		default:
			f(`<tr><td>guard</td><td><code>%s</code></td></tr>`, html.EscapeString(JS(g.Pattern)))
		}
	}

	doc("specDoc", s.Doc)
	f(`<div class="sinks">sinks: %s</div>`, html.EscapeString(strings.Join(s.Sinks, ", ")))

	if 0 < len(s.Events) {
		f(`<div class="events"><table>`)
		for _, name := range sortedNames(s.Events) {
			e := s.Events[name]
			f(`<tr class="event"><td><span id="event-%s" class="eventName">%s</span></td><td>`, name, name)
			if e != nil {
				doc("eventDoc", e.Doc)
				if e.Cron != "" {
					f(`<div>cron <code>%s</code></div>`, html.EscapeString(e.Cron))
				} else {
					f(`<div>source <code>%s</code></div>`, html.EscapeString(e.Source))
				}
				if e.Pattern != nil {
					f(`<div>pattern <code>%s</code></div>`, html.EscapeString(JS(e.Pattern)))
				}
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	f(`<div class="states"><table>`)
	for _, name := range s.StateNames() {
		f(`<tr class="state"><td><span id="%s" class="stateName">%s</span></td><td>`, name, name)
		if st := s.States[name]; st != nil {
			doc("stateDoc", st.Doc)
			for _, sink := range sortedNames(st.Emit) {
				e := st.Emit[sink]
				if e == nil {
					continue
				}
				f(`<div class="emit">emit on <code>%s</code>`, sink)
				switch {
				case e.JS != "":
					code(e.JS)
				case e.Pointer != "":
					f(` the model at <code>%s</code>`, html.EscapeString(e.Pointer))
				default:
					f(` <code>%s</code>`, html.EscapeString(JS(e.Value)))
				}
				f(`</div>`)
			}
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	f(`<div class="transitions"><table>`)
	for _, name := range s.TransitionNames() {
		t := s.Transitions[name]
		if t == nil {
			continue
		}
		f(`<tr class="transition"><td><span class="transitionName">%s</span></td><td>`, name)
		f(`<div><a href="#%s">%s</a> on <code>%s</code></div>`, t.From, t.From, t.EventName())
		doc("transitionDoc", t.Doc)
		f(`<table>`)
		for i, k := range t.To {
			if k == nil {
				continue
			}
			f(`<tr><td><div class="continuationNum">%d</div></td><td><table>`, i)
			guard(k.Guard)
			if r := k.Request; r != nil {
				f(`<tr><td>request</td><td><code>%s</code>`, r.Driver)
				if r.JS != "" {
					code(r.JS)
				} else {
					f(` <code>%s</code>`, html.EscapeString(JS(r.Value)))
				}
				f(`</td></tr>`)
			}
			for _, e := range k.Then {
				if e == nil {
					continue
				}
				guard(e.Guard)
				f(`<tr><td>target</td><td><a href="#%s"><code>%s</code></a></td></tr>`, e.Target, e.Target)
				if e.Update != nil {
					f(`<tr><td>update</td><td><code>%s</code></td></tr>`, html.EscapeString(JS(e.Update)))
				}
			}
			f(`</table></td></tr>`)
		}
		f(`</table>`)
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return err
}

func sortedNames[V any](m map[string]V) []string {
	acc := make(map[string]bool, len(m))
	for k := range m {
		acc[k] = true
	}
	return keys(acc)
}

// RenderPage writes a whole HTML page for the definition.  With
// includeGraph, the page draws the definition's Mermaid graph.
func RenderPage(s *spec.Spec, out io.Writer, cssFiles []string, includeGraph bool) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/spec-html.css"}
	}

	js, err := json.Marshal(s)
	if err != nil {
		return err
	}

	title := html.EscapeString(s.Name)
	fmt.Fprintf(out, `<!DOCTYPE html>
<html>
  <head>
  <meta charset="utf-8">
  <title>%s</title>
  <script>
  var thisSpec = %s;
  </script>
`, title, js)

	if includeGraph {
		fmt.Fprintf(out, `  <script type="module">
  import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs";
  mermaid.initialize({startOnLoad: true});
  </script>
`)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `  </head>
  <body>
    <h1>%s</h1>
`, title)

	if includeGraph {
		fmt.Fprintf(out, `<pre class="mermaid">`+"\n")
		var g strings.Builder
		if err := Mermaid(s, &g, nil); err != nil {
			return err
		}
		io.WriteString(out, html.EscapeString(g.String()))
		fmt.Fprintf(out, "</pre>\n")
	}

	if err = RenderHTML(s, out); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, `
  </body>
</html>
`)
	return err
}

// ReadAndRenderPage loads and checks a definition and then renders
// its page.
func ReadAndRenderPage(filename string, cssFiles []string, out io.Writer, includeGraph bool) error {
	s, err := spec.Load(filename)
	if err != nil {
		return err
	}
	if _, err = s.Compile(nil); err != nil {
		return err
	}
	return RenderPage(s, out, cssFiles, includeGraph)
}
