package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unkn0wn-root/sessioncache"
)

// sessionBody is the HTTP shape of a session.
type sessionBody struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func bodyOf(sess sessioncache.Session) sessionBody {
	return sessionBody{ID: sess.ID, Username: sess.Username}
}

// getSession serves GET /sessions/:id through the facade.
func (s *Server) getSession(c *gin.Context) {
	id := c.Param("id")
	sess, err := s.find(c.Request.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, errSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	case sess.ID != "":
		// found, but the facade could not keep it; still a valid answer
		s.log.Warn("facade populate failed", sessioncache.Fields{"id": id, "err": err})
	default:
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bodyOf(sess))
}

// saveSession serves POST /sessions/:id.
func (s *Server) saveSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.sessions.Save(c.Request.Context(), id, "user-"+id); err != nil {
		s.writeError(c, err)
		return
	}
	s.forget(c.Request.Context(), id)
	c.Status(http.StatusNoContent)
}

// createSession serves POST /sessions with a freshly minted id.
func (s *Server) createSession(c *gin.Context) {
	id := s.newID()
	sess := sessioncache.Session{ID: id, Username: "user-" + id}
	if err := s.sessions.Save(c.Request.Context(), sess.ID, sess.Username); err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Location", "/sessions/"+id)
	c.JSON(http.StatusCreated, bodyOf(sess))
}

// evictSession serves DELETE /sessions/:id.
func (s *Server) evictSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.sessions.Evict(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	s.forget(c.Request.Context(), id)
	c.Status(http.StatusNoContent)
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sessioncache.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, sessioncache.ErrStoreUnavailable):
		s.log.Error("session store unavailable", sessioncache.Fields{"path": c.FullPath(), "err": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
	default:
		s.log.Error("request failed", sessioncache.Fields{"path": c.FullPath(), "err": err})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
