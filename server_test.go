package protoplot

import (
	"context"
	"encoding/json"
	"github.com/minor-industries/protoplot/internal/dynschema"
	"github.com/minor-industries/protoplot/messages"
	"github.com/minor-industries/protoplot/schema"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"net/http"
	"net/http/httptest"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
	"strings"
	"testing"
	"time"
)

func serve(t *testing.T, p *Plotter, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	p.GetEngine().ServeHTTP(w, req)
	return w
}

func TestServerPages(t *testing.T) {
	h := newHarness(t, Options{})

	w := serve(t, h.plotter, http.MethodGet, "/", "")
	require.Equal(t, http.StatusMovedPermanently, w.Code)
	require.Equal(t, "/index.html", w.Header().Get("Location"))

	w = serve(t, h.plotter, http.MethodGet, "/index.html", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "<title>protoplot</title>")
	require.Equal(t, "text/html", w.Header().Get("Content-Type"))

	w = serve(t, h.plotter, http.MethodGet, "/plot.js", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestServerSubscribe(t *testing.T) {
	h := newHarness(t, Options{})
	md := chain(t, "server.subscribe", dynschema.Double)
	require.NoError(t, h.pub.Advertise("/s", string(md.FullName())))

	w := serve(t, h.plotter, http.MethodPost, "/api/subscribe", `{"topic": "/s"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, h.plotter, http.MethodPost, "/api/subscribe", `{"topic": "/s", "path": "a--c"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "error")

	w = serve(t, h.plotter, http.MethodPost, "/api/subscribe", `{"topic": "/s", "path": "a-b-c"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var status Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, "/s", status.Topic)
	require.Equal(t, "server.subscribe.Root", status.MessageType)
	require.Equal(t, "a-b-c", status.Path)

	h.publish(t, "/s", md, protoreflect.ValueOfFloat64(-2.5))
	require.Eventually(t, func() bool {
		w := serve(t, h.plotter, http.MethodGet, "/api/value", "")
		var st Status
		return json.Unmarshal(w.Body.Bytes(), &st) == nil && st.Reading.Present && st.Reading.Value == -2.5
	}, 2*time.Second, 5*time.Millisecond)

	w = serve(t, h.plotter, http.MethodPost, "/api/topic", `{"topic": "/other"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, "/other", status.Topic)
	require.Equal(t, "a-b-c", status.Path)
	require.Equal(t, "", status.MessageType)

	w = serve(t, h.plotter, http.MethodPost, "/api/topic", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerTopics(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.pub.Advertise("/b", "pkg.B"))
	require.NoError(t, h.pub.Advertise("/a", "pkg.A"))

	w := serve(t, h.plotter, http.MethodGet, "/api/topics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Topics []topicResponse `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Topics, 2)
	require.Equal(t, "/a", body.Topics[0].Topic)
	require.Equal(t, "pkg.A", body.Topics[0].Publishers[0].MsgTypeName)
	require.Equal(t, "pub", body.Topics[0].Publishers[0].Node)
}

func TestServerHistoryAndMetrics(t *testing.T) {
	h := newHarness(t, Options{})

	require.Eventually(t, func() bool {
		w := serve(t, h.plotter, http.MethodGet, "/api/history?series=1&after=0", "")
		var data messages.Data
		return w.Code == http.StatusOK &&
			json.Unmarshal(w.Body.Bytes(), &data) == nil &&
			len(data.Samples) >= 2 &&
			data.Samples[0].X == 1
	}, 2*time.Second, 5*time.Millisecond)

	w := serve(t, h.plotter, http.MethodGet, "/api/history?series=one", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, h.plotter, http.MethodGet, "/api/history?after=x", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Eventually(t, func() bool {
		w := serve(t, h.plotter, http.MethodGet, "/metrics", "")
		body := w.Body.String()
		return w.Code == http.StatusOK &&
			strings.Contains(body, "protoplot_feed_ticks_total") &&
			strings.Contains(body, "protoplot_broker_dropped_total") &&
			strings.Contains(body, `protoplot_series_value{series="1"}`)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWebsocketStreamsSamples(t *testing.T) {
	h := newHarness(t, Options{})
	md := chain(t, "server.ws", dynschema.Double)
	require.NoError(t, h.plotter.SetTopicAndPath("/w", "a-b-c"))

	srv := httptest.NewServer(h.plotter.GetEngine())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, SubscriptionRequest{Series: []int{1}}))

	var initial messages.Data
	require.NoError(t, wsjson.Read(ctx, conn, &initial))
	require.NotZero(t, initial.Now)

	h.publish(t, "/w", md, protoreflect.ValueOfFloat64(42))

	lastX := int64(-1)
	for _, s := range initial.Samples {
		lastX = int64(s.X)
	}
	for {
		var data messages.Data
		require.NoError(t, wsjson.Read(ctx, conn, &data))
		require.Len(t, data.Samples, 1)

		s := data.Samples[0]
		require.Equal(t, 1, s.SeriesID)
		require.Greater(t, int64(s.X), lastX)
		lastX = int64(s.X)

		if s.Y == 42 {
			break
		}
	}
}

func dialWebsocket(t *testing.T, ctx context.Context, p *Plotter, req SubscriptionRequest) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(p.GetEngine())
	t.Cleanup(srv.Close)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	require.NoError(t, wsjson.Write(ctx, conn, req))
	return conn
}

func TestWebsocketResumesAfterLastX(t *testing.T) {
	h := newHarness(t, Options{})
	md := chain(t, "server.ws.resume", dynschema.Double)
	require.NoError(t, h.plotter.SetTopicAndPath("/r", "a-b-c"))
	h.publish(t, "/r", md, protoreflect.ValueOfFloat64(7))

	var retained []schema.Sample
	require.Eventually(t, func() bool {
		var err error
		retained, err = h.plotter.History(1, -1)
		return err == nil && len(retained) >= 5
	}, 2*time.Second, 5*time.Millisecond)
	lastX := int64(retained[2].X)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialWebsocket(t, ctx, h.plotter, SubscriptionRequest{Series: []int{1}, LastX: &lastX})

	var initial messages.Data
	require.NoError(t, wsjson.Read(ctx, conn, &initial))
	require.NotEmpty(t, initial.Samples)
	for _, s := range initial.Samples {
		require.Greater(t, int64(s.X), lastX)
	}

	for i := 0; i < 5; i++ {
		var data messages.Data
		require.NoError(t, wsjson.Read(ctx, conn, &data))
		for _, s := range data.Samples {
			require.Greater(t, int64(s.X), lastX)
		}
	}
}

func TestWebsocketDerivedSeriesOnly(t *testing.T) {
	h := newHarness(t, Options{
		Derived: []DerivedSeries{{SeriesID: 2, Expr: "scale 2"}},
	})
	md := chain(t, "server.ws.derived", dynschema.Double)
	require.NoError(t, h.plotter.SetTopicAndPath("/d", "a-b-c"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialWebsocket(t, ctx, h.plotter, SubscriptionRequest{Series: []int{2}})

	var initial messages.Data
	require.NoError(t, wsjson.Read(ctx, conn, &initial))
	for _, s := range initial.Samples {
		require.Equal(t, 2, s.SeriesID)
	}

	h.publish(t, "/d", md, protoreflect.ValueOfFloat64(21))

	for {
		var data messages.Data
		require.NoError(t, wsjson.Read(ctx, conn, &data))
		for _, s := range data.Samples {
			require.Equal(t, 2, s.SeriesID)
		}
		if y, ok := lastY(data.Samples); ok && y == 42 {
			break
		}
	}
}
