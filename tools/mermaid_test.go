package tools

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

func TestMermaid(t *testing.T) {
	var buf bytes.Buffer
	if err := Mermaid(turnstile(t), &buf, nil); err != nil {
		t.Fatal(err)
	}
	g := goldie.New(t)
	g.Assert(t, "turnstile", buf.Bytes())
}

func TestMermaidOpts(t *testing.T) {
	var buf bytes.Buffer
	opts := &MermaidOpts{Direction: "LR"}
	if err := Mermaid(turnstile(t), &buf, opts); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, "graph LR\n") {
		t.Fatal(got)
	}
	if strings.Contains(got, "style") || strings.Contains(got, "[guarded]") {
		t.Fatal(got)
	}
}
