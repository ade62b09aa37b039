package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererRendersEveryTemplate(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	for name := range subjects {
		msg, err := r.Render(Job{ID: "j1", Template: name, To: []string{"a@example.com"}, Data: map[string]string{
			"Number": "TI-1001",
			"Title":  "Printer jam",
		}})
		require.NoError(t, err, string(name))
		assert.NotEmpty(t, msg.Subject, string(name))
		assert.NotEmpty(t, msg.HTML, string(name))
		assert.NotEmpty(t, msg.Text, string(name))
		assert.NotContains(t, msg.Text, "<no value>", string(name))
	}
}

func TestRendererEscapesHTML(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	msg, err := r.Render(Job{ID: "j1", Template: TemplateCommentAdded, To: []string{"a@example.com"}, Data: map[string]string{
		"Number":     "TI-1001",
		"AuthorName": "Ana",
		"Preview":    "<script>alert(1)</script>",
	}})
	require.NoError(t, err)
	assert.Equal(t, "[TI-1001] New comment from Ana", msg.Subject)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.Text, "<script>alert(1)</script>")
}

func TestRendererRejectsUnknownTemplateAndMissingRecipients(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, err = r.Render(Job{ID: "j1", Template: "nope", To: []string{"a@example.com"}})
	assert.Error(t, err)

	_, err = r.Render(Job{ID: "j2", Template: TemplatePasswordReset})
	assert.Error(t, err)
}
