// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import "fmt"

// MissingArgumentError is returned when a required placeholder refers to
// a positional argument which was not supplied.
type MissingArgumentError struct {
	Endpoint string
	Field    string
	Index    int
}

func (e *MissingArgumentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: missing argument $%d in path", e.Endpoint, e.Index)
	}
	return fmt.Sprintf("%s: missing argument $%d for field %q", e.Endpoint, e.Index, e.Field)
}
