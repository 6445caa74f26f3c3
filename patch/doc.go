/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package patch applies JSON-Patch-style operations to a model in
// place.
//
// A model is a JSON tree: map[string]interface{}, []interface{},
// string, float64, bool or nil.  Paths are JSON pointers (RFC 6901).
// Values written into a model are converted to fresh JSON trees (a
// []string becomes a []interface{}, an int becomes a float64), so a
// model never shares structure with the data it was patched from and
// later operations can always walk into what earlier ones wrote.
package patch
