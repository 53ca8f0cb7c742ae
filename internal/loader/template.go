package loader

import (
	"strings"
)

// RenderPlaceholders replaces every {{field_name}} occurrence in the
// template with the corresponding record value. Placeholders with no
// matching field are left unchanged.
func RenderPlaceholders(template string, record Record) string {
	result := template
	for key, value := range record {
		placeholder := "{{" + key + "}}"
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}
