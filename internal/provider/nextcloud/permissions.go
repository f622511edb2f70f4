package nextcloud

import (
	"fmt"
	"strconv"
	"strings"
)

// Nextcloud encodes a user's rights on a file or folder as a small integer
// in PROPFIND and OCS responses. The ranges below are how the provider
// groups them into named levels.
const (
	PermissionNone   = "No permissions (No access to the file or folder)"
	PermissionRead   = "Read"
	PermissionWrite  = "Write"
	PermissionDelete = "Delete"
	PermissionShare  = "Share"
	PermissionAll    = "All"
)

// PermissionString maps a provider permission number to its named level.
func PermissionString(n int) (string, error) {
	switch {
	case n == 0:
		return PermissionNone, nil
	case n >= 1 && n <= 3:
		return PermissionRead, nil
	case n >= 4 && n <= 7:
		return PermissionWrite, nil
	case n >= 8 && n <= 15:
		return PermissionDelete, nil
	case n >= 16 && n <= 29:
		return PermissionShare, nil
	case n == 30 || n == 31:
		return PermissionAll, nil
	default:
		return "", fmt.Errorf("invalid permission number %d", n)
	}
}

// PermissionNumber maps a named level back to the canonical number for that
// level (the top of each range, matching what the provider accepts).
func PermissionNumber(s string) (int, error) {
	switch s {
	case PermissionNone:
		return 0, nil
	case PermissionRead:
		return 3, nil
	case PermissionWrite:
		return 7, nil
	case PermissionDelete:
		return 15, nil
	case PermissionShare:
		return 29, nil
	case PermissionAll:
		return 31, nil
	default:
		return 0, fmt.Errorf("invalid permission level %q", s)
	}
}

// ExtractPermissions pulls the permission number out of a raw provider
// response carrying a <permissions> element. Returns -1, false when the
// response has none.
func ExtractPermissions(body []byte) (int, bool) {
	s := string(body)
	_, after, found := strings.Cut(s, "<permissions>")
	if !found {
		return -1, false
	}
	value, _, found := strings.Cut(after, "<")
	if !found {
		return -1, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(value, `\`, "")))
	if err != nil {
		return -1, false
	}
	return n, true
}

// ExtractFailureMessages collects the distinct non-ok <message> elements of
// a raw provider response, joined with ", \n". An empty string means every
// message was ok.
func ExtractFailureMessages(body []byte) string {
	parts := strings.Split(string(body), "<message>")
	var msgs []string
	for _, part := range parts[1:] {
		value, _, found := strings.Cut(part, "<")
		if !found {
			continue
		}
		value = strings.ReplaceAll(value, `\`, "")
		if strings.EqualFold(value, "ok") {
			continue
		}
		dup := false
		for _, m := range msgs {
			if m == value {
				dup = true
				break
			}
		}
		if !dup {
			msgs = append(msgs, value)
		}
	}
	return strings.Join(msgs, ", \n")
}
