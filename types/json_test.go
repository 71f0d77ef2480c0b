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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonObject_ScanAcceptsBytesAndString(t *testing.T) {
	var fromBytes JsonObject
	require.NoError(t, fromBytes.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, float64(1), fromBytes["a"])

	// sqlite hands TEXT back as string
	var fromString JsonObject
	require.NoError(t, fromString.Scan(`{"b":"x"}`))
	assert.Equal(t, "x", fromString["b"])

	var fromNil JsonObject
	require.NoError(t, fromNil.Scan(nil))
	assert.NotNil(t, fromNil)
	assert.Empty(t, fromNil)

	var bad JsonObject
	assert.Error(t, bad.Scan(42))
}

func TestJsonObject_Value(t *testing.T) {
	v, err := JsonObject(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = JsonObject{"a": 1}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(v.([]byte)))
}

func TestJsonArray_ScanAndValue(t *testing.T) {
	var arr JsonArray
	require.NoError(t, arr.Scan(`[{"a":1},{"b":2}]`))
	require.Len(t, arr, 2)
	assert.Equal(t, float64(2), arr[1]["b"])

	var fromNil JsonArray
	require.NoError(t, fromNil.Scan(nil))
	assert.NotNil(t, fromNil)
	assert.Empty(t, fromNil)

	v, err := arr.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"a":1},{"b":2}]`, string(v.([]byte)))

	v, err = JsonArray(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
