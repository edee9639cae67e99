package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu     sync.Mutex
	got    []string
	fail   bool
	closed bool
}

func (f *fakeClient) Send(message []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.got = append(f.got, string(message))
	return true
}

func (f *fakeClient) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func TestBroadcastByTopic(t *testing.T) {
	h := NewHub()
	abc, xyz, all := &fakeClient{}, &fakeClient{}, &fakeClient{}
	h.Register("abc", abc)
	h.Register("xyz", xyz)
	h.Register(All, all)

	require.Equal(t, 2, h.Broadcast("abc", []byte("e1")))
	assert.Equal(t, []string{"e1"}, abc.got)
	assert.Empty(t, xyz.got)
	assert.Equal(t, []string{"e1"}, all.got)

	// nobody subscribed to "nope" except the All client
	require.Equal(t, 1, h.Broadcast("nope", []byte("e2")))
}

func TestBroadcastAllDoesNotDoubleSend(t *testing.T) {
	h := NewHub()
	all := &fakeClient{}
	h.Register(All, all)
	h.Broadcast(All, []byte("x"))
	assert.Equal(t, []string{"x"}, all.got)
}

func TestUnregisterAndFailures(t *testing.T) {
	h := NewHub()
	ok, bad := &fakeClient{}, &fakeClient{fail: true}
	h.Register("abc", ok)
	h.Register("abc", bad)
	require.Equal(t, 2, h.Len())
	assert.Equal(t, 1, h.Broadcast("abc", []byte("m")))

	h.Unregister("abc", ok)
	h.Unregister("abc", bad)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 0, h.Broadcast("abc", []byte("m")))
}

func TestCloseAll(t *testing.T) {
	h := NewHub()
	a, b := &fakeClient{}, &fakeClient{}
	h.Register("abc", a)
	h.Register(All, b)
	h.CloseAll()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Equal(t, 0, h.Len())
}
