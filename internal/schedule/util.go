// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package schedule

import "strconv"

func parseInt64(b []byte) (int64, error) {
	return strconv.ParseInt(string(b), 10, 64)
}
