package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

func newFakeTopic(t *testing.T) (*pstest.Server, []option.ClientOption) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	opts := []option.ClientOption{option.WithGRPCConn(conn)}

	admin, err := gcppubsub.NewClient(context.Background(), "test-project", opts...)
	require.NoError(t, err)
	_, err = admin.CreateTopic(context.Background(), "failures")
	require.NoError(t, err)

	return srv, opts
}

func TestPubsub_PublishesEvents(t *testing.T) {
	srv, opts := newFakeTopic(t)
	ctx := context.Background()

	tr, err := New(ctx, "test-project", "failures", opts...)
	require.NoError(t, err)

	event := &faultline.Event{EventID: "abc", Level: faultline.LevelError}
	require.NoError(t, tr.SendEvent(ctx, event))
	require.NoError(t, tr.Flush(ctx))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "event", msgs[0].Attributes["kind"])
	assert.Equal(t, "error", msgs[0].Attributes["level"])

	var decoded faultline.Event
	require.NoError(t, json.Unmarshal(msgs[0].Data, &decoded))
	assert.Equal(t, "abc", decoded.EventID)
}

func TestPubsub_PublishesSessions(t *testing.T) {
	srv, opts := newFakeTopic(t)
	ctx := context.Background()

	tr, err := New(ctx, "test-project", "failures", opts...)
	require.NoError(t, err)

	session := &faultline.Session{ID: "s1", Status: faultline.SessionCrashed, Errors: 2}
	require.NoError(t, tr.SendSession(ctx, session))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "session", msgs[0].Attributes["kind"])
	assert.Equal(t, "crashed", msgs[0].Attributes["status"])
}

func TestPubsub_PublishToMissingTopicFails(t *testing.T) {
	_, opts := newFakeTopic(t)
	ctx := context.Background()

	tr, err := New(ctx, "test-project", "no-such-topic", opts...)
	require.NoError(t, err, "construction does not validate the topic")

	err = tr.SendEvent(ctx, &faultline.Event{EventID: "abc"})
	assert.Error(t, err)
}
