package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialViews(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/views"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) viewReply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var reply viewReply
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestWebSocketViews(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)
	searchID := searchFor(t, env, "tab-1")
	conn := dialViews(t, env)

	require.NoError(t, conn.WriteJSON(viewRequest{Seq: 1, SearchID: searchID, GapSeconds: 0}))
	reply := readReply(t, conn)
	assert.Equal(t, uint64(1), reply.Seq)
	require.NotNil(t, reply.View)
	assert.Equal(t, 5, reply.View.Count)

	// Запрос с уже виденным seq отбрасывается без ответа
	require.NoError(t, conn.WriteJSON(viewRequest{Seq: 1, SearchID: searchID, GapSeconds: 300}))
	require.NoError(t, conn.WriteJSON(viewRequest{Seq: 2, SearchID: searchID, GapSeconds: 60}))

	reply = readReply(t, conn)
	assert.Equal(t, uint64(2), reply.Seq)
	require.NotNil(t, reply.View)
	assert.Equal(t, int64(60), reply.View.GapSeconds)
	assert.Equal(t, 3, reply.View.Count)
}

func TestWebSocketViews_Errors(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)
	conn := dialViews(t, env)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	reply := readReply(t, conn)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "invalid_message", reply.Error.Code)

	require.NoError(t, conn.WriteJSON(viewRequest{Seq: 1, SearchID: "missing"}))
	reply = readReply(t, conn)
	assert.Equal(t, uint64(1), reply.Seq)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "search_not_found", reply.Error.Code)

	require.NoError(t, conn.WriteJSON(viewRequest{Seq: 2, SearchID: "missing", GapSeconds: -1}))
	reply = readReply(t, conn)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "invalid_gap", reply.Error.Code)
}

func TestViewClient_Advance(t *testing.T) {
	c := &viewClient{}

	assert.False(t, c.advance(0))
	assert.True(t, c.advance(1))
	assert.True(t, c.advance(5))
	assert.False(t, c.advance(5))
	assert.False(t, c.advance(3))
	assert.True(t, c.stale(4))
	assert.False(t, c.stale(5))
}

func TestViewClient_ScheduleKeepsNewest(t *testing.T) {
	c := newViewClient(nil, nil)
	defer c.cancel()

	for seq := uint64(1); seq <= 50; seq++ {
		c.schedule(viewRequest{Seq: seq, SearchID: "s1", GapSeconds: int64(seq)})
	}

	// Один сигнал и один ожидающий запрос, сколько бы сообщений ни пришло
	assert.Len(t, c.wake, 1)
	req, ok := c.takePending()
	require.True(t, ok)
	assert.Equal(t, uint64(50), req.Seq)

	_, ok = c.takePending()
	assert.False(t, ok)
}

func TestViewClient_Deliverable(t *testing.T) {
	c := &viewClient{}
	require.True(t, c.advance(3))

	// Ответ на seq 2 поставлен в очередь до прихода seq 3: не отправляется
	assert.False(t, c.deliverable(2))
	assert.True(t, c.deliverable(3))
	// Ответы без номера (ошибка разбора) отправляются всегда
	assert.True(t, c.deliverable(0))
}
