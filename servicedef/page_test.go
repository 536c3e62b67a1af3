package servicedef

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamplePage(t *testing.T) {
	page := SamplePage("Bonjour")
	assert.Contains(t, page, "<h1>Bonjour</h1>")
	assert.Contains(t, page, "<title>Localization Sample</title>")
}

func TestSamplePageEscapesHeading(t *testing.T) {
	assert.Contains(t, SamplePage("<b>&</b>"), "<h1>&lt;b&gt;&amp;&lt;/b&gt;</h1>")
}
