package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJobDescription_BlocksAndBullets(t *testing.T) {
	html := `<div>
		<h2>About the role</h2>
		<p>We build  payment   infrastructure.</p>
		<ul><li>Go experience</li><li>Postgres</li></ul>
		<script>trackPageView()</script>
	</div>`

	text, err := CleanJobDescription(html)
	require.NoError(t, err)

	assert.Contains(t, text, "About the role")
	assert.Contains(t, text, "We build payment infrastructure.")
	assert.Contains(t, text, "- Go experience")
	assert.Contains(t, text, "- Postgres")
	assert.NotContains(t, text, "trackPageView")
}

func TestCleanJobDescription_LineBreaks(t *testing.T) {
	text, err := CleanJobDescription("Remote first<br>Flexible hours")
	require.NoError(t, err)
	assert.Equal(t, "Remote first\nFlexible hours", text)
}

func TestCleanJobDescription_Empty(t *testing.T) {
	text, err := CleanJobDescription("   ")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestCleanText_NormalizesWhitespace(t *testing.T) {
	input := "Title  here\r\n\r\n\r\n\r\nBody\t\ttext   \n"
	assert.Equal(t, "Title here\n\nBody text", CleanText(input))
}
