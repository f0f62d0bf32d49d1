// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package broker

import "errors"

var (
	// ErrEmpty is returned by pop/peek operations on an empty list.
	ErrEmpty = errors.New("broker: list is empty")

	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("broker: key not found")
)
