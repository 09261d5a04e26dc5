package engine

import (
	"strings"

	"github.com/hbagheri/mailflow/internal/model"
)

// namePlaceholder is the recipient-name substitution token supported in
// subject, HTML, and text bodies.
const namePlaceholder = "{{name}}"

// Render substitutes the recipient's display name into a template string.
// The empty-name fallback lives in Subscriber.DisplayName.
func Render(tpl, name, email string) string {
	s := model.Subscriber{Name: name, Email: email}
	return strings.ReplaceAll(tpl, namePlaceholder, s.DisplayName())
}
