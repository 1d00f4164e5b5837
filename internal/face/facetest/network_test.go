package facetest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datacollector/internal/clock"
	"github.com/roach88/datacollector/internal/face"
	"github.com/roach88/datacollector/internal/ndn"
)

var epoch = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func TestNetwork_HandlerReplies(t *testing.T) {
	n := New(clock.NewFake(epoch))
	n.Handle(ndn.MustParseName("/sensor7"), func(i *ndn.Interest) (Reply, bool) {
		return DataReply(&ndn.Data{Name: i.Name.AppendString("v")}), true
	})
	n.Handle(ndn.MustParseName("/down"), func(*ndn.Interest) (Reply, bool) {
		return NackReply(ndn.NackNoRoute), true
	})

	var got []face.Response
	record := func(r face.Response) { got = append(got, r) }
	require.NoError(t, n.Express(&ndn.Interest{Name: ndn.MustParseName("/sensor7"), CanBePrefix: true}, record))
	require.NoError(t, n.Express(&ndn.Interest{Name: ndn.MustParseName("/down")}, record))

	require.Len(t, got, 2)
	assert.Equal(t, face.KindData, got[0].Kind)
	assert.Equal(t, face.KindNack, got[1].Kind)
	assert.Len(t, n.Expressed(), 2)
	assert.Equal(t, 0, n.Pending())
}

func TestNetwork_UnansweredTimesOut(t *testing.T) {
	c := clock.NewFake(epoch)
	n := New(c)

	var got []face.Response
	require.NoError(t, n.Express(&ndn.Interest{Name: ndn.MustParseName("/nobody")}, func(r face.Response) { got = append(got, r) }))
	assert.Empty(t, got)

	c.Advance(ndn.DefaultInterestLifetime)
	require.Len(t, got, 1)
	assert.Equal(t, face.KindTimeout, got[0].Kind)
}

func TestNetwork_FetchServedByPut(t *testing.T) {
	n := New(clock.NewFake(epoch))
	prefix := ndn.MustParseName("/org/sensor7")

	var regErr error
	n.Register(prefix, func(i *ndn.Interest) {
		require.NoError(t, n.Put(&ndn.Data{Name: i.Name, Content: []byte("x")}))
	}, func(err error) { regErr = err })
	require.NoError(t, regErr)

	var got face.Response
	n.Fetch(prefix.AppendNumber(0), func(r face.Response) { got = r })
	assert.Equal(t, face.KindData, got.Kind)
	assert.Equal(t, "x", string(got.Data.Content))
	assert.Len(t, n.Puts(), 1)
}

func TestNetwork_FailRegistration(t *testing.T) {
	n := New(clock.NewFake(epoch))
	n.FailRegistration(errors.New("no forwarder"))

	var regErr error
	n.Register(ndn.MustParseName("/a"), func(*ndn.Interest) {}, func(err error) { regErr = err })
	assert.EqualError(t, regErr, "no forwarder")
	assert.False(t, n.Inject(&ndn.Interest{Name: ndn.MustParseName("/a/b")}))
	assert.Empty(t, n.Registered())
}
