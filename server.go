package protoplot

import (
	"github.com/gin-gonic/gin"
	"github.com/minor-industries/protoplot/assets"
	"github.com/minor-industries/protoplot/messages"
	"github.com/minor-industries/protoplot/transport"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"io/fs"
	"net/http"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
	"strconv"
)

type subscribeRequest struct {
	Topic string `json:"topic" binding:"required"`
	Path  string `json:"path" binding:"required"`
}

type topicRequest struct {
	Topic string `json:"topic" binding:"required"`
}

type topicResponse struct {
	Topic      string                       `json:"topic"`
	Publishers []transport.MessagePublisher `json:"publishers"`
}

func (p *Plotter) setupServer() error {
	r := p.server

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/index.html")
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})

	p.StaticFiles(assets.FS,
		"index.html", "text/html",
		"plot.js", "application/javascript",
	)

	r.GET("/ws", p.serveWebsocket)

	api := r.Group("/api")

	api.POST("/subscribe", func(c *gin.Context) {
		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := p.SetTopicAndPath(req.Topic, req.Path); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, p.Status())
	})

	api.POST("/topic", func(c *gin.Context) {
		var req topicRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := p.SwitchTopic(req.Topic); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, p.Status())
	})

	api.GET("/topics", func(c *gin.Context) {
		topics, err := p.Topics()
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		result := make([]topicResponse, 0, len(topics))
		for _, topic := range topics {
			pubs, err := p.TopicInfo(topic)
			if err != nil {
				p.log.Warn("topic info unavailable", "topic", topic, "error", err)
			}
			result = append(result, topicResponse{Topic: topic, Publishers: pubs})
		}
		c.JSON(http.StatusOK, gin.H{"topics": result})
	})

	api.GET("/value", func(c *gin.Context) {
		c.JSON(http.StatusOK, p.Status())
	})

	api.GET("/history", func(c *gin.Context) {
		seriesID := p.seriesID
		if s := c.Query("series"); s != "" {
			id, err := strconv.Atoi(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid series"})
				return
			}
			seriesID = id
		}

		after := int64(-1)
		if s := c.Query("after"); s != "" {
			x, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after"})
				return
			}
			after = x
		}

		samples, err := p.History(seriesID, after)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, &messages.Data{Samples: samples})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})))

	return nil
}

func (p *Plotter) serveWebsocket(c *gin.Context) {
	ctx := c.Request.Context()

	conn, wsErr := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if wsErr != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, wsErr)
		return
	}

	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "Closed unexpectedly")
	}()

	var req SubscriptionRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		p.log.Warn("ws read error", "error", err)
		return
	}
	ctx = conn.CloseRead(ctx)

	err := p.Subscribe(&req, func(data *messages.Data) error {
		if err := wsjson.Write(ctx, conn, data); err != nil {
			return errors.Wrap(err, "write json")
		}
		return nil
	})
	if err != nil {
		p.log.Debug("ws client gone", "error", err)
		return
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (p *Plotter) RunServer(address string) error {
	if err := p.server.Run(address); err != nil {
		return errors.Wrap(err, "run")
	}
	return nil
}

func (p *Plotter) StaticFiles(fsys fs.FS, files ...string) {
	for i := 0; i < len(files); i += 2 {
		name := files[i]
		ct := files[i+1]
		p.server.GET("/"+name, func(c *gin.Context) {
			header := c.Writer.Header()
			header["Content-Type"] = []string{ct}
			content, err := fs.ReadFile(fsys, name)
			if err != nil {
				c.Status(404)
				return
			}
			_, _ = c.Writer.Write(content)
		})
	}
}
