package ftp

import (
	"errors"
	"strings"
)

// maxPathLen bounds resolved paths. A parameter that would assemble into a
// longer path is rejected rather than truncated, so a jail check can never
// run against a silently shortened path.
const maxPathLen = 512

var (
	errPathTraversal = errors.New("path contains a parent-directory reference")
	errPathTooLong   = errors.New("resolved path exceeds the length bound")
)

// resolvePath joins the current working directory and a client-supplied
// parameter into an absolute path. An empty parameter or "/" resolves to
// the root; an absolute parameter is used verbatim; anything else is
// appended to the working directory. A single trailing slash is stripped
// unless the result is the root itself.
//
// Any assembled path containing "../" is rejected. The check runs on the
// full path, after joining, and fails closed: no attempt is made to
// normalize parent references away. Double slashes supplied by the client
// are preserved, not collapsed; the resolver itself inserts at most one
// separator.
func resolvePath(cwd, param string) (string, error) {
	if param == "" || param == "/" {
		return "/", nil
	}

	var full string
	if strings.HasPrefix(param, "/") {
		full = param
	} else {
		full = cwd
		if !strings.HasSuffix(full, "/") {
			full += "/"
		}
		full += param
	}

	if len(full) > 1 && strings.HasSuffix(full, "/") {
		full = full[:len(full)-1]
	}

	if strings.Contains(full, "../") {
		return "", errPathTraversal
	}
	if len(full) > maxPathLen {
		return "", errPathTooLong
	}
	return full, nil
}
