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

package cloud

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
)

var errPermanent = errors.New("bad message")

type recordingCommand struct {
	cor.BaseCommand
	err  error
	seen []string
}

func (c *recordingCommand) Execute(context cor.Context) {
	c.seen = append(c.seen, context.Get(cor.CtxIn).(string))
	if c.err != nil {
		context.AddError(c.GetName(), c.err)
	}
}

func newRecordingCommand(err error) *recordingCommand {
	return &recordingCommand{BaseCommand: *cor.NewBaseCommand("recording"), err: err}
}

func TestListenerAcksSuccess(t *testing.T) {
	cmd := newRecordingCommand(nil)
	l := &PubSubListener{command: cmd}

	assert.True(t, l.handle(context.Background(), "1", []byte(`{"prompt":"a cat"}`)))
	assert.Equal(t, []string{`{"prompt":"a cat"}`}, cmd.seen)
}

func TestListenerLeavesTransientFailuresUnacked(t *testing.T) {
	l := &PubSubListener{command: newRecordingCommand(errors.New("model busy"))}
	assert.False(t, l.handle(context.Background(), "2", []byte("{}")))

	// Without a classifier nothing is permanent.
	l = &PubSubListener{command: newRecordingCommand(errPermanent)}
	assert.False(t, l.handle(context.Background(), "3", []byte("{}")))
}

func TestListenerAcksPermanentFailures(t *testing.T) {
	l := &PubSubListener{
		command:   newRecordingCommand(errPermanent),
		Permanent: func(err error) bool { return errors.Is(err, errPermanent) },
	}
	assert.True(t, l.handle(context.Background(), "4", []byte("not json")))
}

func TestListenerSetCommandKeepsFirst(t *testing.T) {
	first, second := newRecordingCommand(nil), newRecordingCommand(nil)
	l := &PubSubListener{}
	l.SetCommand(first)
	l.SetCommand(second)

	require.True(t, l.handle(context.Background(), "5", []byte("x")))
	assert.Len(t, first.seen, 1)
	assert.Empty(t, second.seen)
}

func TestListenWithoutCommandFails(t *testing.T) {
	l := &PubSubListener{}
	assert.Error(t, l.Listen(context.Background()))
}

type settledMessage struct {
	acks, nacks int
}

func (m *settledMessage) Ack()  { m.acks++ }
func (m *settledMessage) Nack() { m.nacks++ }

func TestSettleNacksTransientFailures(t *testing.T) {
	l := &PubSubListener{command: newRecordingCommand(errors.New("model busy"))}
	msg := &settledMessage{}
	settle(msg, l.handle(context.Background(), "6", []byte("{}")))
	assert.Equal(t, 0, msg.acks)
	assert.Equal(t, 1, msg.nacks)

	l = &PubSubListener{command: newRecordingCommand(nil)}
	msg = &settledMessage{}
	settle(msg, l.handle(context.Background(), "7", []byte("{}")))
	assert.Equal(t, 1, msg.acks)
	assert.Equal(t, 0, msg.nacks)
}
