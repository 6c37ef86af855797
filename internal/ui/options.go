/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"farmlayout/internal/render"
	"farmlayout/internal/session"
)

// RunOptions configures the desktop editor window.
type RunOptions struct {
	Session   *session.Session
	Templates []string // names offered by the template picker
	CrashDir  string
	PDFTitle  string
	// Icons is the cache the session was opened with; the window repaints
	// when one of its icons finishes loading.
	Icons *render.IconCache
}
