// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that appends one row per generation to a BigQuery ledger table.
//
// The row is a model.GenerationRecord built from the validated request and
// the artifact. The streaming Inserter maps struct fields to columns through
// the `bigquery` struct tags.
package commands

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// RowInserter is the part of *bigquery.Inserter the command uses.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// GenerationPersistToBigQuery writes the generation ledger row.
type GenerationPersistToBigQuery struct {
	cor.BaseCommand
	inserter RowInserter
}

// NewGenerationPersistToBigQuery creates the command for dataset.table.
func NewGenerationPersistToBigQuery(name string, client *bigquery.Client, dataset string, table string) *GenerationPersistToBigQuery {
	return NewGenerationPersist(name, client.Dataset(dataset).Table(table).Inserter())
}

// NewGenerationPersist creates the command over any RowInserter.
func NewGenerationPersist(name string, inserter RowInserter) *GenerationPersistToBigQuery {
	return &GenerationPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), inserter: inserter}
}

func (s *GenerationPersistToBigQuery) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil &&
		context.Get(ParamVideoArtifact) != nil && context.Get(ParamGenerationRequest) != nil
}

func (s *GenerationPersistToBigQuery) Execute(context cor.Context) {
	req := context.Get(ParamGenerationRequest).(model.GenerationRequest)
	artifact := context.Get(ParamVideoArtifact).(*model.VideoArtifact)
	record := model.NewGenerationRecord(req, artifact)

	if err := s.inserter.Put(context.GetContext(), record); err != nil {
		s.Fail(context, fmt.Errorf("bigquery insert failed for artifact %s: %w", artifact.ID, err))
		return
	}
	s.Succeed(context)
}
