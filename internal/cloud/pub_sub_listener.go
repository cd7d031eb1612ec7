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
// This file defines the Pub/Sub listener that feeds queued generation
// requests into a command. Processing is delegated to the command; the
// listener only decides whether a message is acknowledged.
//
// Logic Flow:
//  1. A PubSubListener is created for a subscription, usually without a command.
//  2. The command is attached once the generation service is known.
//  3. Listen blocks, handing each message body to the command as a string
//     under cor.CtxIn.
//  4. A message is acked when the command succeeds or fails permanently.
//     Any other failure nacks it, so Pub/Sub redelivers it.
package cloud

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
)

// PubSubListener connects a subscription to a command.
type PubSubListener struct {
	subscription *pubsub.Subscription
	command      cor.Command

	// Permanent reports errors that redelivery cannot fix. Such messages are
	// acked and dropped. Nil treats every error as transient.
	Permanent func(error) bool
}

// NewPubSubListener binds a listener to subscriptionID. command may be nil
// and set later with SetCommand.
func NewPubSubListener(client *pubsub.Client, subscriptionID string, command cor.Command) *PubSubListener {
	sub := client.Subscription(subscriptionID)
	// Generations hold the accelerator; take one message at a time.
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	return &PubSubListener{subscription: sub, command: command}
}

// SetCommand attaches command unless one is already set.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen receives messages until ctx ends.
func (m *PubSubListener) Listen(ctx context.Context) error {
	if m.command == nil {
		return errors.New("pubsub listener has no command")
	}
	slog.InfoContext(ctx, "listening", "subscription", m.subscription.ID())
	err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
		settle(msg, m.handle(msgCtx, msg.ID, msg.Data))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// acker is the settling side of a *pubsub.Message.
type acker interface {
	Ack()
	Nack()
}

// settle acks or nacks msg. A nack makes Pub/Sub redeliver right away instead
// of after the lease extension runs out.
func settle(msg acker, ack bool) {
	if ack {
		msg.Ack()
		return
	}
	msg.Nack()
}

// handle runs the command on one message body and reports whether the
// message should be acked.
func (m *PubSubListener) handle(ctx context.Context, id string, data []byte) bool {
	spanCtx, span := otel.Tracer("message-listener").Start(ctx, "receive-message")
	defer span.End()
	span.SetAttributes(attribute.String("message_id", id))

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(spanCtx)
	chainCtx.Add(cor.CtxIn, string(data))
	defer chainCtx.Close()

	m.command.Execute(chainCtx)

	err := chainCtx.Err()
	if err == nil {
		span.SetStatus(codes.Ok, "success")
		return true
	}
	span.SetStatus(codes.Error, "failed")
	if m.Permanent != nil && m.Permanent(err) {
		slog.WarnContext(spanCtx, "dropping message", "message_id", id, "error", err)
		return true
	}
	slog.ErrorContext(spanCtx, "message will be redelivered", "message_id", id, "error", err)
	return false
}
