// Package api serves theme editing, previews and exports over HTTP, with
// progress and preview notifications on a per-session websocket.
package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/export"
	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/logging"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/preview"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/processor"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/worker"
)

// DefaultMaxUpload bounds a card upload request.
const DefaultMaxUpload = 64 << 20

// Options wires the server to the rendering stack.
type Options struct {
	Worker    worker.Worker
	Loader    themerimage.Loader
	Processor export.Processor
	Encode    themerimage.EncodeOptions
	Preview   preview.Options
	MaxUpload int64
	Logger    hclog.Logger

	// AllowLocalSources lets clients name files on the server's disk as slot
	// sources. Off by default: only http(s) URLs, data URIs and uploads.
	AllowLocalSources bool
}

// Server holds sessions and routes requests to them.
type Server struct {
	opts     Options
	engine   *gin.Engine
	hub      *Hub
	upgrader websocket.Upgrader
	logger   hclog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New builds a server. Worker, Loader and Processor are required.
func New(opts Options) (*Server, error) {
	if opts.Worker == nil || opts.Loader == nil || opts.Processor == nil {
		return nil, errors.New("api: worker, loader and processor are required")
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = DefaultMaxUpload
	}
	s := &Server{
		opts:     opts,
		hub:      NewHub(),
		logger:   logging.OrDiscard(opts.Logger).Named("api"),
		sessions: make(map[string]*Session),
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Close ends every session.
func (s *Server) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		s.closeSession(sess)
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/sessions", s.handleCreateSession)

	sess := api.Group("/sessions/:id", s.withSession)
	sess.GET("", s.handleGetSession)
	sess.DELETE("", s.handleDeleteSession)
	sess.PUT("/style/:category", s.handleStyle)
	sess.PUT("/slots/:category/:key", s.handleSlot)
	sess.POST("/cards", s.handleUploadCards)
	sess.POST("/preview/:category/:key", s.handlePreview)
	sess.GET("/preview/:category/:key", s.handleGetPreview)
	sess.GET("/export", s.handleExport)
	sess.GET("/events", s.handleEvents)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) withSession(c *gin.Context) {
	s.mu.RLock()
	sess, ok := s.sessions[c.Param("id")]
	s.mu.RUnlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.Set("session", sess)
	c.Next()
}

func session(c *gin.Context) *Session {
	return c.MustGet("session").(*Session)
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": n})
}

// handleCreateSession starts a session, seeded from a YAML theme body when
// one is supplied.
func (s *Server) handleCreateSession(c *gin.Context) {
	cfg := theme.NewConfiguration()
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUpload))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	if len(body) > 0 {
		var popts []theme.ParseOption
		if !s.opts.AllowLocalSources {
			popts = append(popts, theme.RemoteSourcesOnly())
		}
		cfg, err = theme.Parse(body, "", popts...)
		if err != nil {
			s.logger.Warn("theme rejected", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	sess, err := s.newSession(cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sess.ID, "populated": cfg.Populated()})
}

func (s *Server) newSession(cfg *theme.Configuration) (*Session, error) {
	id := uuid.NewString()
	popts := s.opts.Preview
	popts.OnResult = func(res preview.Result) {
		s.hub.Broadcast(id, Event{Type: EventPreview, Slot: res.Slot, Token: res.Token, Error: res.Err})
	}
	orch, err := preview.New(s.opts.Worker, s.opts.Loader, popts, s.logger.With("session", id))
	if err != nil {
		return nil, err
	}

	sess := &Session{ID: id, Created: time.Now(), cfg: cfg, preview: orch}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.logger.Info("session created", "session", id, "populated", cfg.Populated())
	return sess, nil
}

func (s *Server) closeSession(sess *Session) {
	sess.preview.Close()
	s.hub.CloseTopic(sess.ID)
	s.logger.Info("session closed", "session", sess.ID)
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess := session(c)
	cfg := sess.Config()
	c.JSON(http.StatusOK, gin.H{
		"id":        sess.ID,
		"created":   sess.Created,
		"populated": cfg.Populated(),
		"theme":     cfg.Snapshot(),
	})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	sess := session(c)
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	s.closeSession(sess)
	c.Status(http.StatusNoContent)
}

// styleRequest carries the style fields to change; absent fields are kept.
type styleRequest struct {
	Overlay     *string `json:"overlay"`
	DeckOverlay *string `json:"deck_overlay"`
	DonOverlay  *string `json:"don_overlay"`
	Edge        *string `json:"edge"`
	Shadow      *bool   `json:"shadow"`
}

func (s *Server) handleStyle(c *gin.Context) {
	var req styleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := processor.ParseCategory(c.Param("category"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	sess := session(c)
	if err := sess.Update(func(cfg *theme.Configuration) error { return applyStyle(cfg, cat, req) }); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Config().Snapshot())
}

func applyStyle(cfg *theme.Configuration, cat processor.Category, req styleRequest) error {
	var errs []error
	set := func(v *string, fn func(string) error) {
		if v != nil {
			errs = append(errs, fn(*v))
		}
	}
	shadow := func(fn func(bool)) {
		if req.Shadow != nil {
			fn(*req.Shadow)
		}
	}

	switch cat {
	case processor.CategoryPlaymat:
		set(req.Overlay, cfg.SetPlaymatOverlay)
		set(req.Edge, cfg.SetPlaymatEdge)
		shadow(cfg.SetPlaymatShadow)
	case processor.CategoryCardBack:
		set(req.DeckOverlay, func(v string) error { return cfg.SetCardBackOverlay(string(theme.BackDeckCards), v) })
		set(req.DonOverlay, func(v string) error { return cfg.SetCardBackOverlay(string(theme.BackDonCards), v) })
		set(req.Edge, cfg.SetCardBackEdge)
		shadow(cfg.SetCardBackShadow)
	case processor.CategoryDonCard:
		set(req.Overlay, cfg.SetDonOverlay)
		set(req.Edge, cfg.SetDonEdge)
		shadow(cfg.SetDonShadow)
	case processor.CategoryCard:
		set(req.Edge, cfg.SetCardEdge)
		shadow(cfg.SetCardShadow)
	default:
		return fmt.Errorf("category %s has no style settings", cat)
	}
	return errors.Join(errs...)
}

// slotRequest selects the art for a slot; an empty source clears it.
type slotRequest struct {
	Source string `json:"source"`
	Label  string `json:"label"`
}

func (s *Server) handleSlot(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := processor.ParseCategory(c.Param("category"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	key := c.Param("key")
	if !s.opts.AllowLocalSources {
		if err := theme.CheckRemoteSource(string(cat)+".source", req.Source); err != nil {
			s.writeError(c, err)
			return
		}
	}
	img := theme.NewImage(req.Source, req.Label)
	err = session(c).Update(func(cfg *theme.Configuration) error { return setSlot(cfg, cat, key, img) })
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat, "key": key, "image": img})
}

func setSlot(cfg *theme.Configuration, cat processor.Category, key string, img *theme.Image) error {
	switch cat {
	case processor.CategoryPlaymat:
		return cfg.SetPlaymat(key, img)
	case processor.CategoryMenu, processor.CategoryMenuOverlay:
		return cfg.SetMenu(key, img)
	case processor.CategoryCardBack:
		return cfg.SetCardBack(key, img)
	case processor.CategoryDonCard:
		cfg.SetDon(img)
		return nil
	case processor.CategoryCard:
		return cfg.SetCard(key, img)
	default:
		return fmt.Errorf("unknown category %q", cat)
	}
}

// handleUploadCards stores each uploaded file as a card, named after the
// file, with its bytes inlined as a data URI.
func (s *Server) handleUploadCards(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files in upload"})
		return
	}

	images := make(map[string]*theme.Image, len(files))
	var total int64
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", fh.Filename, err)})
			return
		}
		if _, err := themerimage.Decode(fh.Filename, data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		name := theme.CardName(fh.Filename)
		images[name] = theme.NewImage(themerimage.DataURI(http.DetectContentType(data), data), fh.Filename)
		total += int64(len(data))
	}

	err = session(c).Update(func(cfg *theme.Configuration) error {
		for name, img := range images {
			if err := cfg.SetCard(name, img); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	names := make([]string, 0, len(images))
	for _, fh := range files {
		names = append(names, theme.CardName(fh.Filename))
	}
	s.logger.Debug("cards uploaded", "count", len(images), "size", humanize.Bytes(uint64(total)))
	c.JSON(http.StatusOK, gin.H{"cards": names})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) slotJob(c *gin.Context) (*Session, processor.Job, *theme.Image, bool) {
	cat, err := processor.ParseCategory(c.Param("category"))
	if err != nil {
		s.writeError(c, err)
		return nil, processor.Job{}, nil, false
	}
	sess := session(c)
	job, img, err := processor.SlotJob(sess.Config(), cat, c.Param("key"))
	if err != nil {
		s.writeError(c, err)
		return nil, processor.Job{}, nil, false
	}
	return sess, job, img, true
}

// handlePreview schedules a preview and answers 202 with its token. With
// ?wait=true it renders synchronously and returns the image.
func (s *Server) handlePreview(c *gin.Context) {
	sess, job, img, ok := s.slotJob(c)
	if !ok {
		return
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); !wait {
		token := sess.preview.Request(job, img)
		c.JSON(http.StatusAccepted, gin.H{"slot": job.SlotID(), "token": token})
		return
	}

	res := sess.preview.Render(c.Request.Context(), job, img)
	writePreview(c, res)
}

func (s *Server) handleGetPreview(c *gin.Context) {
	sess, job, _, ok := s.slotJob(c)
	if !ok {
		return
	}
	res, found := sess.preview.Latest(job.SlotID())
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no preview available"})
		return
	}
	writePreview(c, res)
}

func writePreview(c *gin.Context, res preview.Result) {
	if !res.Available() {
		c.JSON(http.StatusNotFound, gin.H{"error": "no preview available", "detail": res.Err, "token": res.Token})
		return
	}
	c.Header("X-Preview-Token", strconv.FormatUint(res.Token, 10))
	c.Data(http.StatusOK, res.Format.MIME(), res.Image)
}

func (s *Server) handleExport(c *gin.Context) {
	sess := session(c)
	exp := export.New(s.opts.Processor, s.opts.Loader,
		export.WithEncodeOptions(s.opts.Encode),
		export.WithLogger(s.logger.With("session", sess.ID)),
		export.WithProgress(func(p export.Progress) {
			s.hub.Broadcast(sess.ID, Event{Type: EventExport, Stage: p.Stage, Detail: p.Detail})
		}),
	)

	data, res, err := exp.ArchiveBytes(c.Request.Context(), sess.Config())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	failed := make([]string, 0, len(res.Failures))
	for _, f := range res.Failures {
		failed = append(failed, f.String())
	}
	s.hub.Broadcast(sess.ID, Event{Type: EventDone, Files: len(res.Entries), Failed: failed})

	if len(res.Entries) == 0 {
		s.logger.Warn("export produced no entries", "session", sess.ID, "failures", len(failed))
	}
	c.Header("Content-Disposition", `attachment; filename="theme.zip"`)
	c.Header("X-Themer-Failures", strconv.Itoa(len(failed)))
	c.Data(http.StatusOK, "application/zip", data)
}

// handleEvents upgrades to a websocket that receives the session's events.
func (s *Server) handleEvents(c *gin.Context) {
	sess := session(c)
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session", sess.ID, "error", err)
		return
	}
	defer conn.Close()

	s.hub.Add(sess.ID, conn)
	defer s.hub.Remove(sess.ID, conn)

	if err := s.hub.WriteJSON(sess.ID, conn, Event{Type: EventHello, Session: sess.ID}); err != nil {
		return
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	var invalid *theme.InvalidSettingError
	if errors.As(err, &invalid) {
		s.logger.Warn("setting rejected", "field", invalid.Field, "value", invalid.Value)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": invalid.Field, "valid": invalid.Valid})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
