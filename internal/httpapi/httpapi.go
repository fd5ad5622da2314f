// Package httpapi exposes the Database façade over HTTP with gin,
// mirroring the original Rust project's db-server/src/handlers package:
// GET/PUT/DELETE on /keys/:key, plus an error-to-status mapping helper.
package httpapi

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/mkaluza/siltengine/internal/database"
	"github.com/mkaluza/siltengine/internal/storeerr"
	"go.uber.org/zap"
)

// State wraps the Database façade behind a mutex, since neither Get nor
// Set/Delete are safe for concurrent use (spec §5's "Shared-resource
// policy"). It plays the role of the original's app_state.rs.
type State struct {
	mu sync.Mutex
	db *database.Database
}

// NewState wraps db for handler access.
func NewState(db *database.Database) *State {
	return &State{db: db}
}

// putRequest is the PUT /keys/:key request body.
type putRequest struct {
	Value string `json:"value"`
}

// getResponse is the GET /keys/:key response body.
type getResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Timestamp uint64 `json:"timestamp"`
}

// NewRouter builds the gin engine, grounded on the original's
// db-server/src/handlers/{get,set,delete}.rs one-route-per-file layout,
// folded here into one package since Go idiomatically groups small HTTP
// surfaces into a single router file.
func NewRouter(st *State, log *zap.SugaredLogger) *gin.Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	r.GET("/keys/:key", st.handleGet)
	r.PUT("/keys/:key", st.handleSet)
	r.DELETE("/keys/:key", st.handleDelete)

	return r
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Infow("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status())
	}
}

func (st *State) handleGet(c *gin.Context) {
	key := c.Param("key")

	st.mu.Lock()
	e, found, err := st.db.Get([]byte(key))
	st.mu.Unlock()

	if err != nil {
		writeError(c, err)
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, getResponse{Key: key, Value: string(e.Value), Timestamp: e.Timestamp})
}

func (st *State) handleSet(c *gin.Context) {
	key := c.Param("key")

	var body putRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st.mu.Lock()
	_, err := st.db.Set([]byte(key), []byte(body.Value))
	st.mu.Unlock()

	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (st *State) handleDelete(c *gin.Context) {
	key := c.Param("key")

	st.mu.Lock()
	_, err := st.db.Delete([]byte(key))
	st.mu.Unlock()

	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps core sentinel errors onto HTTP status codes, grounded
// on the original's db-server/src/handlers/error_handler.rs.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storeerr.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, storeerr.ErrEmptyKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
