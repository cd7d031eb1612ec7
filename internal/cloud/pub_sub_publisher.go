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

// Package cloud provides components for interacting with Google Cloud services.
// This file defines a small Pub/Sub publisher used to announce finished
// generations to downstream consumers (gallery indexers, moderation jobs).
//
// Logic Flow:
//  1. A PubSubPublisher is created with a client and a topic ID.
//  2. Publish marshals the payload to JSON and sends it with the given attributes.
//  3. The call blocks until the server acknowledges the message, and the
//     whole exchange is wrapped in an OpenTelemetry span.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Publisher sends a JSON payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, payload any, attributes map[string]string) (string, error)
}

// PubSubPublisher publishes messages to a single topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher returns a publisher bound to topicID.
func NewPubSubPublisher(client *pubsub.Client, topicID string) *PubSubPublisher {
	return &PubSubPublisher{client: client, topic: client.Topic(topicID)}
}

// Publish sends payload as JSON and waits for the server-assigned message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, payload any, attributes map[string]string) (string, error) {
	ctx, span := otel.Tracer("message-publisher").Start(ctx, "publish-message")
	defer span.End()
	span.SetAttributes(attribute.String("topic", p.topic.ID()))

	data, err := json.Marshal(payload)
	if err != nil {
		span.SetStatus(codes.Error, "marshal failed")
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes}).Get(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "publish failed")
		return "", fmt.Errorf("failed to publish to %s: %w", p.topic.ID(), err)
	}
	span.SetStatus(codes.Ok, "published")
	return id, nil
}

// Stop flushes pending messages and releases the topic's goroutines.
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}
