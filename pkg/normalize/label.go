package normalize

import "strings"

// MaxLabelSize is the number of characters kept from a label before it is
// truncated.
const MaxLabelSize = 75

// ellipsis is appended to truncated labels.
const ellipsis = ".."

var labelStripper = strings.NewReplacer("\n", "", "\t", "")

// Sanitize deletes line feeds and tabs from raw and truncates the result to
// MaxLabelSize characters followed by an ellipsis.
func Sanitize(raw string) string {
	label := labelStripper.Replace(raw)

	count := 0

	for idx := range label {
		if count == MaxLabelSize {
			return label[:idx] + ellipsis
		}

		count++
	}

	return label
}
