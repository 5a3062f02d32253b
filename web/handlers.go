package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/xyzj/cherrybot/excel"
	"github.com/xyzj/cherrybot/json"
	"github.com/xyzj/cherrybot/llms"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type chatItem struct {
	ID      uint64 `json:"id"`
	Title   string `json:"title"`
	Turns   int    `json:"turns"`
	Updated int64  `json:"updated"`
}

// httpStatus maps the error taxonomy to a response code
func httpStatus(err error) int {
	switch {
	case errors.Is(err, llms.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, llms.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, llms.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, llms.ErrBackendUnavailable), errors.Is(err, llms.ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, llms.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) ok(c *gin.Context, data any) {
	c.Set("status", 1)
	if data != nil {
		c.Set("data", data)
	}
	c.JSON(http.StatusOK, c.Keys)
}

// fail 返回错误，data 不为空时一并返回，页面据此刷新
func (s *Server) fail(c *gin.Context, err error, data any) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		s.opt.logg.Error("[WEB] " + c.Request.Method + " " + c.Request.URL.Path + " " + err.Error())
	}
	c.Set("status", 0)
	c.Set("detail", err.Error())
	if data != nil {
		c.Set("data", data)
	}
	c.JSON(code, c.Keys)
}

func bodyText(c *gin.Context) (gjson.Result, error) {
	b, err := c.GetRawData()
	if err != nil {
		return gjson.Result{}, err
	}
	if len(b) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(b) {
		return gjson.Result{}, errors.Wrap(llms.ErrValidation, "body is not json")
	}
	return gjson.ParseBytes(b), nil
}

func chatID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Wrap(llms.ErrValidation, "bad conversation id: "+c.Param("id"))
	}
	return id, nil
}

func (s *Server) getSession(c *gin.Context) {
	sess := s.session(c)
	snap := sess.Snapshot()
	c.Set("max_tokens", s.opt.maxTokens)
	s.ok(c, snap)
}

func (s *Server) chat(c *gin.Context) {
	sess := s.session(c)
	body, err := bodyText(c)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	// 保存失败时回复已追加，快照里仍有完整对话
	if _, err = sess.Submit(c.Request.Context(), body.Get("text").String(), nil); err != nil {
		s.fail(c, err, sess.Snapshot())
		return
	}
	s.ok(c, sess.Snapshot())
}

// chatStream 以 server-sent events 推送回复片段，结束时推送 done 或 error
func (s *Server) chatStream(c *gin.Context) {
	sess := s.session(c)
	body, err := bodyText(c)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	started := false
	_, err = sess.Submit(c.Request.Context(), body.Get("text").String(), func(b []byte) error {
		if !started {
			started = true
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
		}
		c.SSEvent("delta", gin.H{"text": json.String(b)})
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if !started {
		if err != nil {
			s.fail(c, err, sess.Snapshot())
			return
		}
		c.Header("Cache-Control", "no-cache")
	}
	if err != nil {
		c.SSEvent("error", gin.H{"status": 0, "detail": err.Error(), "data": sess.Snapshot()})
	} else {
		c.SSEvent("done", gin.H{"status": 1, "data": sess.Snapshot()})
	}
	c.Writer.Flush()
}

func (s *Server) newChat(c *gin.Context) {
	sess := s.session(c)
	if err := sess.NewChat(c.Request.Context()); err != nil {
		s.fail(c, err, sess.Snapshot())
		return
	}
	s.ok(c, sess.Snapshot())
}

func (s *Server) listChats(c *gin.Context) {
	sess := s.session(c)
	convs, err := sess.List(c.Request.Context())
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	items := make([]*chatItem, 0, len(convs))
	for _, v := range convs {
		items = append(items, &chatItem{
			ID:      v.ID,
			Title:   v.Title(),
			Turns:   len(v.Turns),
			Updated: v.Updated,
		})
	}
	c.Set("current", sess.CurrentID())
	s.ok(c, items)
}

func (s *Server) selectChat(c *gin.Context) {
	sess := s.session(c)
	id, err := chatID(c)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	if err = sess.Select(c.Request.Context(), id); err != nil {
		s.fail(c, err, sess.Snapshot())
		return
	}
	s.ok(c, sess.Snapshot())
}

func (s *Server) deleteChat(c *gin.Context) {
	sess := s.session(c)
	id, err := chatID(c)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	if err = sess.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err, sess.Snapshot())
		return
	}
	s.ok(c, sess.Snapshot())
}

func (s *Server) exportChats(c *gin.Context) {
	convs, err := s.mgr.Storage().List(c.Request.Context())
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	fd, err := excel.NewConversationBook("", convs)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	fn := "cherrybot-" + time.Now().Format("20060102150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+fn+`"`)
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err = fd.Write(c.Writer); err != nil {
		s.opt.logg.Error("[WEB] export: " + err.Error())
	}
}

func (s *Server) generate(c *gin.Context) {
	sess := s.session(c)
	body, err := bodyText(c)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	maxTokens := s.opt.maxTokens
	if x := body.Get("max_tokens"); x.Exists() {
		maxTokens = int(x.Int())
	}
	out, err := sess.Generate(c.Request.Context(), body.Get("text").String(), maxTokens)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	s.ok(c, gin.H{"text": out, "max_tokens": maxTokens})
}

func (s *Server) status(c *gin.Context) {
	if s.opt.status == nil {
		s.fail(c, errors.Wrap(llms.ErrNotFound, "status recorder is disabled"), nil)
		return
	}
	s.ok(c, s.opt.status.Last())
}

func (s *Server) statusChart(c *gin.Context) {
	if s.opt.status == nil {
		c.String(http.StatusNotFound, "status recorder is disabled")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.opt.status.BuildLines(c.Query("width")))
}
