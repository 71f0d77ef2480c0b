/*
 * Copyright 2025 quarrydb.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package repository provides a generic, criteria-driven repository built on
// Bun: composable query criteria, scoped validation, optional result
// presentation, and a full CRUD and query surface bound to a single entity
// type.
//
// A Repository owns a live select handle that accumulates modifiers and
// queued criteria until a terminal operation executes. After every terminal
// operation the handle is rebuilt, so no filter, ordering, or limit ever
// leaks from one call into the next.
package repository
