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

package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError_Nil(t *testing.T) {
	kind, ok := ClassifyError(nil)
	assert.False(t, ok)
	assert.Equal(t, UnknownErr, kind)
}

func TestClassifyError_MySQLNumbers(t *testing.T) {
	cases := []struct {
		number uint16
		want   SQLError
	}{
		{1146, NoTableErr},
		{1054, NoColumnErr},
		{1062, DuplicateKeyErr},
		{1048, NotNullViolationErr},
		{1216, ForeignKeyViolationErr},
		{1452, ForeignKeyViolationErr},
		{3819, CheckConstraintViolationErr},
		{1406, DataTruncatedErr},
		{1366, InvalidTypeCastErr},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d", tc.number), func(t *testing.T) {
			kind, ok := ClassifyError(&mysql.MySQLError{Number: tc.number, Message: "boom"})
			assert.True(t, ok)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestClassifyError_MySQLUnknownNumberIsStillRecognized(t *testing.T) {
	kind, ok := ClassifyError(&mysql.MySQLError{Number: 9999, Message: "boom"})
	assert.True(t, ok)
	assert.Equal(t, UnknownErr, kind)
}

func TestClassifyError_WrappedMySQLError(t *testing.T) {
	wrapped := fmt.Errorf("insert failed: %w", &mysql.MySQLError{Number: 1062})
	kind, ok := ClassifyError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, DuplicateKeyErr, kind)
}

func TestClassifyError_Messages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want SQLError
	}{
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), DuplicateKeyErr},
		{"postgres unique", errors.New(`duplicate key value violates unique constraint "users_email_key"`), DuplicateKeyErr},
		{"postgres sqlstate unique", errors.New("ERROR: boom (SQLSTATE 23505)"), DuplicateKeyErr},
		{"sqlite missing table", errors.New("no such table: users"), NoTableErr},
		{"postgres missing table", errors.New(`relation does not exist (SQLSTATE 42P01)`), NoTableErr},
		{"sqlite missing column", errors.New("no such column: nickname"), NoColumnErr},
		{"sqlite not null", errors.New("NOT NULL constraint failed: users.name"), NotNullViolationErr},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), ForeignKeyViolationErr},
		{"postgres check", errors.New("violates check constraint (SQLSTATE 23514)"), CheckConstraintViolationErr},
		{"postgres truncation", errors.New("value too long: string data right truncation"), DataTruncatedErr},
		{"sqlite type", errors.New("datatype mismatch"), InvalidTypeCastErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := ClassifyError(tc.err)
			assert.True(t, ok)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestClassifyError_Unrecognized(t *testing.T) {
	kind, ok := ClassifyError(errors.New("connection refused"))
	assert.False(t, ok)
	assert.Equal(t, UnknownErr, kind)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, IsDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsDuplicateKey(errors.New("no such table: users")))
	assert.False(t, IsDuplicateKey(nil))
}

func TestIsConstraintViolation(t *testing.T) {
	assert.True(t, IsConstraintViolation(errors.New("NOT NULL constraint failed: users.name")))
	assert.True(t, IsConstraintViolation(errors.New("FOREIGN KEY constraint failed")))
	assert.True(t, IsConstraintViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsConstraintViolation(errors.New("no such table: users")))
	assert.False(t, IsConstraintViolation(errors.New("connection refused")))
}

func TestSQLError_String(t *testing.T) {
	assert.Equal(t, "duplicate key", DuplicateKeyErr.String())
	assert.Equal(t, "no such table", NoTableErr.String())
	assert.Equal(t, "unknown", UnknownErr.String())
	assert.Equal(t, "unknown", SQLError(42).String())
}
