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

package repository

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFillRepo(t *testing.T) *Repository[testUser] {
	t.Helper()
	repo, err := New[testUser](newTestDB(t))
	require.NoError(t, err)
	return repo
}

func TestFill_AssignsByColumnName(t *testing.T) {
	repo := newFillRepo(t)
	u := &testUser{}
	err := repo.fill(u, map[string]any{
		"name":  "alice",
		"email": "alice@example.com",
		"bio":   "climber",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "climber", u.Bio)
}

func TestFill_ConvertsCompatibleNumerics(t *testing.T) {
	repo := newFillRepo(t)
	u := &testUser{}
	require.NoError(t, repo.fill(u, map[string]any{"age": int(41)}))
	assert.Equal(t, int64(41), u.Age)

	require.NoError(t, repo.fill(u, map[string]any{"age": int32(7)}))
	assert.Equal(t, int64(7), u.Age)
}

func TestFill_NilZeroesTheColumn(t *testing.T) {
	repo := newFillRepo(t)
	u := &testUser{Bio: "climber", Age: 30}
	require.NoError(t, repo.fill(u, map[string]any{"bio": nil, "age": nil}))
	assert.Empty(t, u.Bio)
	assert.Zero(t, u.Age)
}

func TestFill_UnknownColumn(t *testing.T) {
	repo := newFillRepo(t)
	err := repo.fill(&testUser{}, map[string]any{"nickname": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown column "nickname"`)
	assert.Contains(t, err.Error(), "testUser")
}

func TestFill_RejectsIntegerIntoStringColumn(t *testing.T) {
	repo := newFillRepo(t)
	err := repo.fill(&testUser{}, map[string]any{"name": 65})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot assign int")
}

func TestFill_RejectsIncompatibleType(t *testing.T) {
	repo := newFillRepo(t)
	err := repo.fill(&testUser{}, map[string]any{"age": "not-a-number"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "age"`)
}

func TestRuneConversionGuard(t *testing.T) {
	str := reflect.TypeOf("")
	assert.True(t, runeConversion(reflect.TypeOf(int(0)), str))
	assert.True(t, runeConversion(reflect.TypeOf(uint8(0)), str))
	assert.False(t, runeConversion(reflect.TypeOf(float64(0)), str))
	assert.False(t, runeConversion(reflect.TypeOf(int(0)), reflect.TypeOf(int64(0))))
}

func TestPrimaryKeyExtraction(t *testing.T) {
	repo := newFillRepo(t)
	u := &testUser{ID: 42}
	assert.Equal(t, int64(42), repo.primaryKey(u))
}

func TestMergeAttrs(t *testing.T) {
	attrs := map[string]any{"name": "alice", "age": 30}
	values := map[string]any{"age": 31, "email": "a@b.c"}

	merged := mergeAttrs(attrs, values)
	assert.Equal(t, map[string]any{"name": "alice", "age": 31, "email": "a@b.c"}, merged)

	// inputs stay untouched
	assert.Equal(t, map[string]any{"name": "alice", "age": 30}, attrs)
	assert.Equal(t, map[string]any{"age": 31, "email": "a@b.c"}, values)

	assert.Empty(t, mergeAttrs(nil, nil))
}
