package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evannetwork/vade/pkg/vade"
)

func newTestRelay(t *testing.T, messageTypes []string) (*Plugin, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	subscriber := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { subscriber.Close() })

	p := NewWithClient(client, "vade:test", messageTypes)
	t.Cleanup(func() { p.Close() })
	return p, subscriber
}

func TestSendMessagePublishesEnvelope(t *testing.T) {
	p, subscriber := newTestRelay(t, nil)
	ctx := context.Background()

	sub := subscriber.Subscribe(ctx, "vade:test")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx) // wait for the subscription to be active
	require.NoError(t, err)

	res, err := p.SendMessage(ctx, `{"type":"ping","data":{"n":1}}`)
	require.NoError(t, err)
	value, has := res.Value()
	require.True(t, has)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(value), &env))
	assert.NotEmpty(t, env.ID) // relay assigns an id
	assert.Equal(t, "ping", env.Type)

	select {
	case msg := <-sub.Channel():
		assert.JSONEq(t, value, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("published message not received")
	}
}

func TestSendMessageKeepsExistingID(t *testing.T) {
	p, _ := newTestRelay(t, nil)

	res, err := p.SendMessage(context.Background(), `{"id":"msg-1","type":"ping"}`)
	require.NoError(t, err)
	value, _ := res.Value()

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(value), &env))
	assert.Equal(t, "msg-1", env.ID)
}

func TestSendMessageDeclinesUnparseable(t *testing.T) {
	p, _ := newTestRelay(t, nil)

	res, err := p.SendMessage(context.Background(), "not json")
	require.NoError(t, err)
	assert.False(t, res.Applicable())

	res, err = p.SendMessage(context.Background(), `{"data":{}}`) // no type
	require.NoError(t, err)
	assert.False(t, res.Applicable())
}

func TestReceiveMessageCountsPerType(t *testing.T) {
	p, _ := newTestRelay(t, []string{"message1", "message2"})
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		res, err := p.ReceiveMessage(ctx, `{"type":"message1","data":{}}`)
		require.NoError(t, err)
		value, has := res.Value()
		require.True(t, has)

		var response struct {
			Type string `json:"type"`
			Data struct {
				Count uint64 `json:"count"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(value), &response))
		assert.Equal(t, "response", response.Type)
		assert.Equal(t, want, response.Data.Count)
	}

	// Unsubscribed types are declined and do not advance the count.
	res, err := p.ReceiveMessage(ctx, `{"type":"message3","data":{}}`)
	require.NoError(t, err)
	assert.False(t, res.Applicable())

	res, err = p.ReceiveMessage(ctx, `{"type":"message2","data":{}}`)
	require.NoError(t, err)
	value, _ := res.Value()
	var response struct {
		Data struct {
			Count uint64 `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(value), &response))
	assert.Equal(t, uint64(1), response.Data.Count)
}

func TestProposeProof(t *testing.T) {
	p, _ := newTestRelay(t, nil)

	res, err := p.ProposeProof(context.Background(), `{"schema":"s1"}`)
	require.NoError(t, err)
	value, has := res.Value()
	require.True(t, has)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(value), &env))
	assert.Equal(t, ProofProposalType, env.Type)
	assert.NotEmpty(t, env.ID)

	res, err = p.ProposeProof(context.Background(), "not json")
	require.NoError(t, err)
	assert.False(t, res.Applicable())
}

func TestRelayThroughFacade(t *testing.T) {
	p, _ := newTestRelay(t, []string{"ping"})

	v := vade.New(nil)
	v.RegisterPlugin(p)

	outcomes, err := v.SendMessage(context.Background(), `{"type":"ping"}`)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "relay", outcomes[0].Plugin)
	assert.True(t, outcomes[0].HasValue)

	// The relay declines foreign types, so nothing handles the call.
	_, err = v.SendMessage(context.Background(), `{"type":"other"}`)
	var aggErr *vade.AggregateError
	require.ErrorAs(t, err, &aggErr)
	assert.Empty(t, aggErr.Outcomes)
}
