package tools

// dot -Tpng g.dot > g.png

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/spec"

	"gopkg.in/yaml.v2"
)

// DotOpts controls Dot.
type DotOpts struct {
	// From and To, if not empty, highlight a step: the To state
	// and the edges from From to To are red.
	From, To string

	// JSONPatterns renders guard patterns as JSON instead of
	// YAML.
	JSONPatterns bool
}

func htmlEscape(s string) string {
	s = strings.Replace(s, "&", "&amp;", -1)
	s = strings.Replace(s, "<", "&lt;", -1)
	s = strings.Replace(s, ">", "&gt;", -1)
	return s
}

func lines(s string) string {
	return strings.Replace(strings.TrimRight(s, "\n")+"\n", "\n", `<BR ALIGN="LEFT"/>`, -1)
}

func shortDoc(doc string) string {
	if 40 < len(doc) {
		if period := strings.Index(doc, ". "); 0 < period {
			doc = doc[0 : period+1]
		}
	}
	return strings.TrimSpace(doc)
}

func (o *DotOpts) pattern(p interface{}) string {
	var (
		bs  []byte
		err error
	)
	if o.JSONPatterns {
		bs, err = json.MarshalIndent(p, "", " ")
	} else {
		bs, err = yaml.Marshal(p)
	}
	if err != nil {
		return err.Error()
	}
	return string(bs)
}

func (o *DotOpts) guard(g *spec.Guard) string {
	switch {
	case g == nil:
		return ""
	case g.JS != "":
		return `<FONT POINT-SIZE="6">` + lines(htmlEscape(g.JS)) + `</FONT>`
	default:
		return `<FONT POINT-SIZE="8">` + lines(htmlEscape(o.pattern(g.Pattern))) + `</FONT>`
	}
}

// Dot writes a Graphviz dot file for the definition.
func Dot(s *spec.Spec, w io.Writer, opts *DotOpts) error {
	if opts == nil {
		opts = &DotOpts{}
	}
	reqs := requesters(s)

	var b strings.Builder
	fmt.Fprintf(&b, "digraph G {\n")
	fmt.Fprintf(&b, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	for _, name := range s.StateNames() {
		var (
			label     = htmlEscape(name)
			fillcolor = "#99ddc8"
			color     = "black"
			shape     = "record"
			style     = "filled"
		)
		if st := s.States[name]; st != nil {
			if st.Doc != "" {
				label += "<BR/><FONT POINT-SIZE='8'>" + htmlEscape(shortDoc(st.Doc)) + "</FONT>"
			}
			if len(st.Emit) == 0 {
				style += ",dashed"
			}
		}
		if reqs[name] {
			shape = "note"
			fillcolor = "#2d93ad"
		}
		if name == core.InitState {
			shape = "circle"
			style += ",bold"
			fillcolor = "#52aa5e"
		}
		if opts.To == name {
			color = "red"
			fillcolor = "#f98b8b"
		}
		fmt.Fprintf(&b, "  %q [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			name, shape, style, color, fillcolor, label)
	}

	for _, name := range s.TransitionNames() {
		t := s.Transitions[name]
		if t == nil {
			continue
		}
		for i, k := range t.To {
			if k == nil {
				continue
			}
			for _, e := range k.Then {
				if e == nil {
					continue
				}
				label := htmlEscape(t.EventName())
				if 1 < len(t.To) {
					label = fmt.Sprintf("%d/%d %s", i+1, len(t.To), label)
				}
				label += `<BR ALIGN="LEFT"/>` + opts.guard(k.Guard)
				if r := k.Request; r != nil {
					label += `<FONT COLOR="#2d93ad">request ` + htmlEscape(r.Driver) + `</FONT><BR ALIGN="LEFT"/>`
					label += opts.guard(e.Guard)
				}
				color := "black"
				if opts.From == t.From && opts.To == e.Target {
					color = "red"
				}
				fmt.Fprintf(&b, "  %q -> %q [ color=\"%s\" label = <%s> ]\n",
					t.From, e.Target, color, label)
			}
		}
	}

	fmt.Fprintf(&b, "}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// PNG renders the output of Dot with the Graphviz dot program.
//
// This function writes two files: basename.dot and basename.png.
func PNG(s *spec.Spec, basename string, opts *DotOpts) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(s, dotfile, opts); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err := dotfile.Close(); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-Gstart=1", "-o", pngname, dotname).Run(); err != nil {
		return pngname, fmt.Errorf("dot: %w", err)
	}
	return pngname, nil
}
