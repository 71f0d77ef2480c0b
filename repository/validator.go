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
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/quarrydb/quarry/types"
)

// Rules maps attribute names to go-playground tag expressions, for example
// {"email": "required,email", "age": "omitempty,gte=0"}. Update rule sets
// usually carry omitempty so partial updates pass for absent attributes.
type Rules map[string]string

// UniqueFunc probes storage for a conflicting row: it reports whether any
// row other than excludeID already holds value. Repository.UniqueCheck
// builds one bound to the repository's own table.
type UniqueFunc func(ctx context.Context, value any, excludeID any) (bool, error)

// RulesValidator validates attribute maps with go-playground/validator,
// with separate rule sets per scope and optional per-field uniqueness
// probes. Under the update scope probes exclude the mutation target, so an
// entity never conflicts with itself.
type RulesValidator struct {
	validate *validator.Validate
	create   Rules
	update   Rules
	unique   map[string]UniqueFunc
}

// NewRulesValidator builds a validator from per-scope rule sets. A nil
// update set falls back to the create rules.
func NewRulesValidator(create, update Rules) *RulesValidator {
	if update == nil {
		update = create
	}
	return &RulesValidator{
		validate: validator.New(),
		create:   create,
		update:   update,
		unique:   make(map[string]UniqueFunc),
	}
}

// Unique registers a uniqueness probe for a field, consulted on both
// scopes. It returns the receiver for chaining.
func (v *RulesValidator) Unique(field string, fn UniqueFunc) *RulesValidator {
	v.unique[field] = fn
	return v
}

// Validate implements Validator. Tag rules run first; uniqueness probes
// only run once the tag rules pass, so rule failures never cost a storage
// round trip.
func (v *RulesValidator) Validate(ctx context.Context, attrs map[string]any, scope types.RuleScope, id any) error {
	rules := v.create
	if scope == types.RuleScopeUpdate {
		rules = v.update
	}

	verr := &ValidationError{}
	if len(rules) > 0 {
		ruleSet := make(map[string]interface{}, len(rules))
		for field, tag := range rules {
			if tag == "" {
				continue
			}
			ruleSet[field] = tag
		}
		for field, res := range v.validate.ValidateMapCtx(ctx, attrs, ruleSet) {
			fieldErrs, ok := res.(validator.ValidationErrors)
			if !ok {
				verr.Add(field, fmt.Sprintf("invalid value: %v", res))
				continue
			}
			for _, fe := range fieldErrs {
				verr.Add(field, tagMessage(fe))
			}
		}
	}
	if verr.HasErrors() {
		return verr
	}

	for field, probe := range v.unique {
		value, ok := attrs[field]
		if !ok {
			continue
		}
		var exclude any
		if scope == types.RuleScopeUpdate {
			exclude = id
		}
		taken, err := probe(ctx, value, exclude)
		if err != nil {
			return err
		}
		if taken {
			verr.Add(field, "has already been taken")
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func tagMessage(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("failed on %s=%s", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}
