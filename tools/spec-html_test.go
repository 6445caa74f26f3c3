package tools

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderSpecHTML(t *testing.T) {
	t.Run("withoutGraph", func(t *testing.T) {
		out := bytes.NewBuffer(make([]byte, 0, 1024*128))
		if err := ReadAndRenderPage("../spec/testdata/turnstile.yaml", []string{"spec.css"}, out, false); err != nil {
			t.Fatal(err)
		}
		got := out.String()
		for _, want := range []string{
			"<title>turnstile</title>",
			"<em>audited</em>",
			`<span id="locked" class="stateName">locked</span>`,
			`href="spec.css"`,
		} {
			if !strings.Contains(got, want) {
				t.Fatalf("no %q", want)
			}
		}
		if strings.Contains(got, `class="mermaid"`) {
			t.Fatal("unexpected graph")
		}
	})

	t.Run("withGraph", func(t *testing.T) {
		out := bytes.NewBuffer(make([]byte, 0, 1024*128))
		if err := ReadAndRenderPage("../spec/testdata/turnstile.yaml", nil, out, true); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), `<pre class="mermaid">`) {
			t.Fatal("no graph")
		}
	})

	t.Run("missing", func(t *testing.T) {
		if err := ReadAndRenderPage("nope.yaml", nil, &bytes.Buffer{}, false); err == nil {
			t.Fatal("expected an error")
		}
	})
}
