package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{}, f.err
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var summary = Message{Key: "run", Body: []byte(`{"kinds":[]}`)}

func TestSQS_Notify(t *testing.T) {
	f := &fakeSQS{}
	require.NoError(t, NewSQS(f, "http://localhost:4566/000000000000/runs").Notify(context.Background(), summary))

	require.Len(t, f.inputs, 1)
	assert.Equal(t, "http://localhost:4566/000000000000/runs", aws.ToString(f.inputs[0].QueueUrl))
	assert.Equal(t, `{"kinds":[]}`, aws.ToString(f.inputs[0].MessageBody))
}

func TestKafka_Notify(t *testing.T) {
	w := &fakeWriter{}
	k := &Kafka{w: w}
	require.NoError(t, k.Notify(context.Background(), summary))
	require.NoError(t, k.Close())

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("run"), w.msgs[0].Key)
	assert.Equal(t, summary.Body, w.msgs[0].Value)
	assert.True(t, w.closed)
}

func TestMulti_JoinsErrors(t *testing.T) {
	boom := errors.New("queue does not exist")
	ok := &fakeWriter{}
	m := Multi{NewSQS(&fakeSQS{err: boom}, "q"), &Kafka{w: ok}}

	err := m.Notify(context.Background(), summary)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.msgs, 1, "a failing sink must not stop the others")

	assert.NoError(t, Multi{}.Notify(context.Background(), summary))
	assert.NoError(t, Discard{}.Notify(context.Background(), summary))
}

func TestNewKafka(t *testing.T) {
	k := NewKafka([]string{"kafka:9092"}, "refinery-runs")
	w, ok := k.w.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "refinery-runs", w.Topic)
	assert.Equal(t, "kafka:9092", w.Addr.String())
}
