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

package quarry

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarrydb/quarry/database"
	"github.com/quarrydb/quarry/repository"
	"github.com/quarrydb/quarry/types"
)

// Service is the terminal-operation facade over a repository bound to the
// global database connection. The repository is built lazily on first use,
// after database.InitDB has run, with the configured repository tuning plus
// any options given to NewService.
//
// Criteria queueing and per-call modifiers live on the repository itself;
// Repository hands it out for chained use.
type Service[T any] interface {
	// Find returns a single entity by primary key.
	Find(ctx context.Context, id any, columns ...string) (*types.Result[T], error)

	// First returns at most one entity; absence is not an error.
	First(ctx context.Context, columns ...string) (*types.Result[T], error)

	// All returns every entity.
	All(ctx context.Context, columns ...string) (*types.Result[T], error)

	// FindBy returns entities matching equality on one column.
	FindBy(ctx context.Context, field string, value any, columns ...string) (*types.Result[T], error)

	// FindWhere returns entities matching every condition.
	FindWhere(ctx context.Context, conds []types.Condition, columns ...string) (*types.Result[T], error)

	// Count returns the total number of entities.
	Count(ctx context.Context) (int, error)

	// CountBy counts entities matching equality on one column.
	CountBy(ctx context.Context, field string, value any) (int, error)

	// CountWhere counts entities matching every condition.
	CountWhere(ctx context.Context, conds []types.Condition) (int, error)

	// Paginate returns one page of entities.
	Paginate(ctx context.Context, page *types.PageRequest, columns ...string) (*types.Pagination[T], error)

	// Create validates attrs and inserts a new entity.
	Create(ctx context.Context, attrs map[string]any) (*types.Result[T], error)

	// FirstOrCreate returns the entity matching attrs, creating it when
	// none exists.
	FirstOrCreate(ctx context.Context, attrs map[string]any) (*types.Result[T], error)

	// UpdateOrCreate updates the entity matching attrs with values merged
	// in, creating it when none exists.
	UpdateOrCreate(ctx context.Context, attrs, values map[string]any) (*types.Result[T], error)

	// Update validates attrs and applies them to the entity with the id.
	Update(ctx context.Context, attrs map[string]any, id any) (*types.Result[T], error)

	// Delete removes entities by primary key and reports how many.
	Delete(ctx context.Context, ids ...any) (int, error)

	// DeleteWhere removes entities matching every condition.
	DeleteWhere(ctx context.Context, conds []types.Condition) (int, error)

	// Repository returns the lazily bound repository for criteria pushes,
	// modifiers, and direct Bun access.
	Repository() (*repository.Repository[T], error)

	// RunInTx runs fn against a transaction-bound repository clone.
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo *repository.Repository[T]) error) error
}

type baseServiceImpl[T any] struct {
	opts []repository.Option[T]
	repo *repository.Repository[T]
	once sync.Once
	err  error
}

// NewService returns a Service backed by the global database connection.
// Options are applied on top of the configured repository tuning.
func NewService[T any](opts ...repository.Option[T]) Service[T] {
	return &baseServiceImpl[T]{opts: opts}
}

func (s *baseServiceImpl[T]) base() (*repository.Repository[T], error) {
	s.once.Do(func() {
		db := database.GetDB()
		if db == nil {
			s.err = fmt.Errorf("database not initialized, call database.InitDB first")
			return
		}
		opts := make([]repository.Option[T], 0, len(s.opts)+1)
		opts = append(opts, repository.WithConfig[T](database.GetRepositoryConfig()))
		opts = append(opts, s.opts...)
		s.repo, s.err = repository.New[T](db, opts...)
	})
	return s.repo, s.err
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, id any, columns ...string) (*types.Result[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.Find(ctx, id, columns...)
}

func (s *baseServiceImpl[T]) First(ctx context.Context, columns ...string) (*types.Result[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.First(ctx, columns...)
}

func (s *baseServiceImpl[T]) All(ctx context.Context, columns ...string) (*types.Result[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.All(ctx, columns...)
}

func (s *baseServiceImpl[T]) FindBy(ctx context.Context, field string, value any, columns ...string) (*types.Result[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.FindBy(ctx, field, value, columns...)
}

func (s *baseServiceImpl[T]) FindWhere(ctx context.Context, conds []types.Condition, columns ...string) (*types.Result[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.FindWhere(ctx, conds, columns...)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context) (int, error) {
	repo, err := s.base()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx)
}

func (s *baseServiceImpl[T]) CountBy(ctx context.Context, field string, value any) (int, error) {
	repo, err := s.base()
	if err != nil {
		return 0, err
	}
	return repo.CountBy(ctx, field, value)
}

func (s *baseServiceImpl[T]) CountWhere(ctx context.Context, conds []types.Condition) (int, error) {
	repo, err := s.base()
	if err != nil {
		return 0, err
	}
	return repo.CountWhere(ctx, conds)
}

func (s *baseServiceImpl[T]) Paginate(ctx context.Context, page *types.PageRequest, columns ...string) (*types.Pagination[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.Paginate(ctx, page, columns...)
}

func (s *baseServiceImpl[T]) Create(ctx context.Context, attrs map[string]any) (*types.Result[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.Create(ctx, attrs)
}

func (s *baseServiceImpl[T]) FirstOrCreate(ctx context.Context, attrs map[string]any) (*types.Result[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.FirstOrCreate(ctx, attrs)
}

func (s *baseServiceImpl[T]) UpdateOrCreate(ctx context.Context, attrs, values map[string]any) (*types.Result[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.UpdateOrCreate(ctx, attrs, values)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, attrs map[string]any, id any) (*types.Result[T], error) {
	repo, err := s.base()
	if err != nil {
		return nil, err
	}
	return repo.Update(ctx, attrs, id)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, ids ...any) (int, error) {
	repo, err := s.base()
	if err != nil {
		return 0, err
	}
	return repo.Delete(ctx, ids...)
}

func (s *baseServiceImpl[T]) DeleteWhere(ctx context.Context, conds []types.Condition) (int, error) {
	repo, err := s.base()
	if err != nil {
		return 0, err
	}
	return repo.DeleteWhere(ctx, conds)
}

func (s *baseServiceImpl[T]) Repository() (*repository.Repository[T], error) {
	return s.base()
}

func (s *baseServiceImpl[T]) RunInTx(ctx context.Context, fn func(ctx context.Context, repo *repository.Repository[T]) error) error {
	repo, err := s.base()
	if err != nil {
		return err
	}
	return repo.RunInTx(ctx, fn)
}
