package normalize

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text unchanged",
			in:   "Supports basic research.",
			want: "Supports basic research.",
		},
		{
			name: "tags removed",
			in:   "<p>Supports <b>basic</b> research.</p>",
			want: "Supports basic research.",
		},
		{
			name: "entities decoded",
			in:   "R&amp;D partnerships &lt;today&gt;",
			want: "R&D partnerships <today>",
		},
		{
			name: "script content dropped",
			in:   `<div>Visible<script>alert("x")</script> text</div>`,
			want: "Visible text",
		},
		{
			name: "style content dropped",
			in:   "<style>p { color: red }</style>Only this",
			want: "Only this",
		},
		{
			name: "whitespace collapsed",
			in:   "  line one\n\n\tline   two  ",
			want: "line one line two",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.in); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
