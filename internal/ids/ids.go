// Package ids generates prefixed identifiers for sessions, tasks, and
// outline nodes.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// New returns an identifier of the form "<prefix>_<12 hex chars>".
func New(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + raw[:12]
}
