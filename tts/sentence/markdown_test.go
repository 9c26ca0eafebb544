package sentence

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{
			name:     "plain paragraph",
			markdown: "Just some text",
			want:     "Just some text.",
		},
		{
			name:     "heading and paragraph",
			markdown: "# Title\n\nSome *emphasis* and a [link](http://example.com).",
			want:     "Title. Some emphasis and a link.",
		},
		{
			name:     "code blocks are skipped",
			markdown: "Before.\n\n```go\nfmt.Println(\"hi\")\n```\n\n    indented code\n\nAfter.",
			want:     "Before. After.",
		},
		{
			name:     "inline code keeps its text",
			markdown: "Run `make build` now.",
			want:     "Run make build now.",
		},
		{
			name:     "list items become sentences",
			markdown: "- one\n- two\n- three!",
			want:     "one. two. three!",
		},
		{
			name:     "soft line breaks become spaces",
			markdown: "line one\nline two",
			want:     "line one line two.",
		},
		{
			name:     "heading ending with punctuation",
			markdown: "## Ready?\n\nGo.",
			want:     "Ready? Go.",
		},
		{
			name:     "html is dropped",
			markdown: "<div>hidden</div>\n\nVisible <b>bold</b> text.",
			want:     "Visible bold text.",
		},
		{
			name:     "blockquote",
			markdown: "> quoted words",
			want:     "quoted words.",
		},
		{
			name:     "empty document",
			markdown: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.markdown); got != tt.want {
				t.Errorf("PlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}
