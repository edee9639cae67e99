package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/unkn0wn-root/sessioncache"
	"github.com/unkn0wn-root/sessioncache/internal/realtime"
	"github.com/unkn0wn-root/sessioncache/notify"
)

// Cache-aside coordinates of the session lookup.
const (
	findTarget = "SessionService"
	findMethod = "find"
)

var errSessionNotFound = errors.New("session not found")

type Options struct {
	Sessions *sessioncache.Sessions
	Facade   *sessioncache.Facade[sessioncache.Session]
	Hub      *realtime.Hub       // nil => new hub
	Logger   sessioncache.Logger // nil => NopLogger
	Now      func() time.Time    // stamps expiry messages; nil => time.Now
	NewID    func() string       // ids for POST /sessions; nil => uuid v4
}

// Server exposes Sessions over HTTP and streams expiries over websockets.
type Server struct {
	sessions *sessioncache.Sessions
	facade   *sessioncache.Facade[sessioncache.Session]
	hub      *realtime.Hub
	log      sessioncache.Logger
	now      func() time.Time
	newID    func() string

	expirySub notify.Subscription
}

// New builds the server and subscribes it to session expiries: an expired session is
// dropped from the facade and announced to websocket clients.
func New(opts Options) *Server {
	s := &Server{
		sessions: opts.Sessions,
		facade:   opts.Facade,
		hub:      opts.Hub,
		log:      opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if s.hub == nil {
		s.hub = realtime.NewHub()
	}
	if s.log == nil {
		s.log = sessioncache.NopLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.expirySub = s.sessions.OnExpire(s.sessionExpired)
	return s
}

// Routes returns the gin engine with every endpoint registered.
func (s *Server) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sessions := router.Group("/sessions")
	{
		sessions.GET("/events", s.streamExpiries)
		sessions.GET("/:id", s.getSession)
		sessions.POST("", s.createSession)
		sessions.POST("/:id", s.saveSession)
		sessions.DELETE("/:id", s.evictSession)
	}
	return router
}

// Close stops listening for expiries and disconnects websocket clients.
func (s *Server) Close() {
	s.expirySub.Unsubscribe()
	s.hub.CloseAll()
}

func (s *Server) find(ctx context.Context, id string) (sessioncache.Session, error) {
	return s.facade.Invoke(ctx, findTarget, findMethod, []any{id},
		func(ctx context.Context) (sessioncache.Session, error) {
			sess, ok, err := s.sessions.Find(ctx, id)
			if err != nil {
				return sessioncache.Session{}, err
			}
			if !ok {
				// never cache an absence
				return sessioncache.Session{}, errSessionNotFound
			}
			return sess, nil
		})
}

func (s *Server) forget(ctx context.Context, id string) {
	if err := s.facade.Evict(ctx, findTarget, findMethod, id); err != nil {
		s.log.Warn("facade eviction failed", sessioncache.Fields{"id": id, "err": err})
	}
}

func (s *Server) sessionExpired(ctx context.Context, sess sessioncache.Session) error {
	if err := s.facade.Evict(ctx, findTarget, findMethod, sess.ID); err != nil {
		return err
	}
	msg, err := encodeExpired(sess, s.now())
	if err != nil {
		return err
	}
	s.hub.Broadcast(sess.ID, msg)
	return nil
}
